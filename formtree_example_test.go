// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package formtree_test

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/choria-io/formtree"
)

func Example() {
	dir, _ := os.MkdirTemp("", "formtree-example-")
	defer os.RemoveAll(dir)

	ctx := context.Background()

	editor, err := formtree.New(ctx, formtree.Config{StorageDirectory: dir})
	if err != nil {
		panic(err)
	}
	defer editor.Close()

	err = editor.Create("feedback", "Feedback")
	if err != nil {
		panic(err)
	}

	err = editor.ApplyScript(strings.NewReader(`
add . rating radios title=Rating 'options=[good, bad]' required=true
add . details fieldset title=Details
add details comments textarea title=Comments
move comments . 0
`))
	if err != nil {
		panic(err)
	}

	err = editor.Save(ctx)
	if err != nil {
		panic(err)
	}

	flat, _ := editor.Flatten()
	for _, n := range flat.Nodes {
		fmt.Printf("%s%s (%s)\n", strings.Repeat("  ", n.Depth), n.Key, n.Type)
	}

	out, err := editor.RenderSubmission(map[string]any{"rating": "good", "comments": "Nice"}, "{{ range .Fields }}{{ .Title }}: {{ .Text }}\n{{ end }}", formtree.EngineGo)
	if err != nil {
		panic(err)
	}
	fmt.Print(out)

	// Output:
	// comments (textarea)
	// rating (radios)
	// details (fieldset)
	// Comments: Nice
	// Rating: good
}
