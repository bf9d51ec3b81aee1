// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package fill

import (
	"bytes"
	"os"
	"strings"
	"text/template"

	"github.com/choria-io/formtree/internal/sprig"
	"github.com/jedib0t/go-pretty/v6/text"
	terminal "golang.org/x/term"
)

var markupColors = map[string]text.Color{
	"bold":      text.Bold,
	"italic":    text.Italic,
	"underline": text.Underline,
	"black":     text.FgBlack,
	"red":       text.FgRed,
	"green":     text.FgGreen,
	"yellow":    text.FgYellow,
	"blue":      text.FgBlue,
	"magenta":   text.FgMagenta,
	"cyan":      text.FgCyan,
	"white":     text.FgWhite,
	"hiblack":   text.FgHiBlack,
	"hired":     text.FgHiRed,
	"higreen":   text.FgHiGreen,
	"hiyellow":  text.FgHiYellow,
	"hiblue":    text.FgHiBlue,
	"himagenta": text.FgHiMagenta,
	"hicyan":    text.FgHiCyan,
	"hiwhite":   text.FgHiWhite,
}

func isTerminal() bool {
	return terminal.IsTerminal(int(os.Stdin.Fd())) && terminal.IsTerminal(int(os.Stdout.Fd()))
}

func renderTemplate(tmpl string, data map[string]any) (string, error) {
	t, err := template.New("element").Funcs(sprig.TxtFuncMap()).Parse(tmpl)
	if err != nil {
		return "", err
	}

	out := bytes.NewBuffer([]byte{})

	err = t.Execute(out, data)
	if err != nil {
		return "", err
	}

	return colorMarkup(out.String()), nil
}

// colorMarkup replaces tags like {red}text{/red} with terminal colors. Tags
// may nest, unknown tag names are removed and unbalanced tags are kept as
// written.
func colorMarkup(input string) string {
	var b strings.Builder

	for i := 0; i < len(input); {
		name, content, end, ok := markupTag(input, i)
		if !ok {
			b.WriteByte(input[i])
			i++
			continue
		}

		inner := colorMarkup(content)
		if color, known := markupColors[strings.ToLower(name)]; known {
			b.WriteString(text.Colors{color}.Sprint(inner))
		} else {
			b.WriteString(inner)
		}

		i = end
	}

	return b.String()
}

// markupTag matches an opening tag at pos with its balanced closing tag
func markupTag(s string, pos int) (name string, content string, end int, ok bool) {
	if s[pos] != '{' {
		return "", "", 0, false
	}

	closing := strings.IndexByte(s[pos:], '}')
	if closing < 2 {
		return "", "", 0, false
	}

	name = s[pos+1 : pos+closing]
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return "", "", 0, false
		}
	}

	open := "{" + name + "}"
	shut := "{/" + name + "}"
	start := pos + closing + 1
	depth := 1

	for j := start; j < len(s); {
		switch {
		case strings.HasPrefix(s[j:], shut):
			depth--
			if depth == 0 {
				return name, s[start:j], j + len(shut), true
			}
			j += len(shut)

		case strings.HasPrefix(s[j:], open):
			depth++
			j += len(open)

		default:
			j++
		}
	}

	return "", "", 0, false
}
