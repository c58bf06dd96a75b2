package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/steveyegge/issueboard/internal/types"
	"github.com/steveyegge/issueboard/internal/ui"
)

// outputJSON writes v as indented JSON.
func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (c *cli) renderOptions(full bool) ui.RenderOptions {
	return ui.RenderOptions{Icons: ui.ShouldUseEmoji(), Full: full}
}

// printResult writes a dispatcher result and returns errFailed for failed outcomes.
func (c *cli) printResult(w io.Writer, result any, full, page bool) error {
	if c.jsonOutput {
		if err := outputJSON(w, result); err != nil {
			return err
		}
		return failure(result)
	}

	var text string
	switch r := result.(type) {
	case []types.ListItem:
		text = ui.RenderList(r, c.renderOptions(full))
	case types.Detail:
		text = ui.RenderDetail(r, c.renderOptions(full))
		if page {
			return ui.ToPager(w, text, ui.PagerOptions{})
		}
	case types.Outcome:
		text = ui.RenderOutcome(r)
	default:
		return fmt.Errorf("unexpected result %T", result)
	}
	if _, err := io.WriteString(w, text); err != nil {
		return err
	}
	return failure(result)
}

func failure(result any) error {
	if o, ok := result.(types.Outcome); ok && o.Failed() {
		return errFailed
	}
	return nil
}
