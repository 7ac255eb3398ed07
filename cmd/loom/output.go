package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"golang.org/x/term"

	"github.com/dshills/loom/internal/app"
	"github.com/dshills/loom/internal/manager"
	"github.com/dshills/loom/internal/pm"
)

var errNoMatch = errors.New("query matched nothing")

// parseCommand splits name:arg,arg. Numeric arguments become ints.
func parseCommand(spec string) (string, []any) {
	name, rest, found := strings.Cut(spec, ":")
	if !found || rest == "" {
		return name, nil
	}
	var args []any
	for _, a := range strings.Split(rest, ",") {
		if n, err := strconv.Atoi(a); err == nil {
			args = append(args, n)
		} else {
			args = append(args, a)
		}
	}
	return name, args
}

func runCommand(m *manager.Manager, spec string) (bool, error) {
	name, args := parseCommand(spec)
	return m.RunCommand(name, args...)
}

func parseSelection(s string) (pm.Selection, error) {
	a, h, found := strings.Cut(s, ":")
	if !found {
		h = a
	}
	anchor, err := strconv.Atoi(a)
	if err != nil {
		return pm.Selection{}, fmt.Errorf("selection %q: %w", s, err)
	}
	head, err := strconv.Atoi(h)
	if err != nil {
		return pm.Selection{}, fmt.Errorf("selection %q: %w", s, err)
	}
	return pm.Selection{Anchor: anchor, Head: head}, nil
}

func applySelection(m *manager.Manager, s string) error {
	sel, err := parseSelection(s)
	if err != nil {
		return err
	}
	return m.Dispatch(m.State().Tr().SetSelection(sel))
}

func listSnapshots(w io.Writer, a *app.Application) error {
	s := a.Store()
	if s == nil {
		return errors.New("no store configured")
	}
	ids, err := s.List()
	if err != nil {
		return err
	}
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	return nil
}

// render marshals doc and narrows it to query. Output is indented, and
// colored when color is set.
func render(doc map[string]any, query string, color bool) ([]byte, error) {
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	if query != "" {
		res := gjson.GetBytes(out, query)
		if !res.Exists() {
			return nil, fmt.Errorf("%w: %s", errNoMatch, query)
		}
		out = []byte(res.Raw)
	}
	out = pretty.Pretty(out)
	if color {
		out = pretty.Color(out, nil)
	}
	return out, nil
}

func printDocument(w io.Writer, m *manager.Manager, query string) error {
	doc, err := m.Document()
	if err != nil {
		return err
	}
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	out, err := render(doc, query, color)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
