package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jrhy/parchment"
)

// edit is one model edit given on the command line.
type edit struct {
	op     string
	index  int
	length int
	text   string
	name   string
	value  interface{}
}

func (e edit) apply(root *parchment.Root) error {
	switch e.op {
	case "insert":
		return root.InsertAt(e.index, e.text, nil)
	case "delete":
		return root.DeleteAt(e.index, e.length)
	case "format":
		return root.FormatAt(e.index, e.length, e.name, e.value)
	default:
		panic("bug! unknown edit " + e.op)
	}
}

// parseInsert parses "index:text".
func parseInsert(s string) (edit, error) {
	index, text, ok := strings.Cut(s, ":")
	if !ok {
		return edit{}, fmt.Errorf("insert %q: want index:text", s)
	}
	i, err := strconv.Atoi(index)
	if err != nil {
		return edit{}, fmt.Errorf("insert %q: %w", s, err)
	}
	return edit{op: "insert", index: i, text: text}, nil
}

// parseDelete parses "index:length".
func parseDelete(s string) (edit, error) {
	index, length, ok := strings.Cut(s, ":")
	if !ok {
		return edit{}, fmt.Errorf("delete %q: want index:length", s)
	}
	i, err := strconv.Atoi(index)
	if err != nil {
		return edit{}, fmt.Errorf("delete %q: %w", s, err)
	}
	n, err := strconv.Atoi(length)
	if err != nil {
		return edit{}, fmt.Errorf("delete %q: %w", s, err)
	}
	return edit{op: "delete", index: i, length: n}, nil
}

// parseFormat parses "index:length:name" or "index:length:name=value". A
// bare name turns the format on; "name=" turns it off.
func parseFormat(s string) (edit, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[2] == "" {
		return edit{}, fmt.Errorf("format %q: want index:length:name[=value]", s)
	}
	i, err := strconv.Atoi(parts[0])
	if err != nil {
		return edit{}, fmt.Errorf("format %q: %w", s, err)
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil {
		return edit{}, fmt.Errorf("format %q: %w", s, err)
	}
	e := edit{op: "format", index: i, length: n, name: parts[2], value: true}
	if name, value, ok := strings.Cut(parts[2], "="); ok {
		e.name, e.value = name, value
	}
	return e, nil
}

func parseEdits(inserts, deletes, formats []string) ([]edit, error) {
	var res []edit
	for _, group := range []struct {
		args  []string
		parse func(string) (edit, error)
	}{
		{inserts, parseInsert},
		{deletes, parseDelete},
		{formats, parseFormat},
	} {
		for _, arg := range group.args {
			e, err := group.parse(arg)
			if err != nil {
				return nil, err
			}
			res = append(res, e)
		}
	}
	return res, nil
}
