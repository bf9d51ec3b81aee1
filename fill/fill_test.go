// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package fill

import (
	"bytes"
	"io"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/choria-io/formtree/elements"
	"github.com/jedib0t/go-pretty/v6/text"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func TestFill(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Fill")
}

// answers feeds prompts in order and records what was asked, the start
// prompt is answered without consuming an answer
type answers struct {
	queue  []any
	asked  []survey.Prompt
	titles []string
}

func (a *answers) expect(mock *Mocksurveyor) {
	mock.EXPECT().AskOne(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(func(p survey.Prompt, resp any, opts ...survey.AskOpt) error {
		if _, ok := resp.(*struct{}); ok {
			return nil
		}

		Expect(a.queue).ToNot(BeEmpty(), "unexpected prompt %q", message(p))

		ans := a.queue[0]
		a.queue = a.queue[1:]
		a.asked = append(a.asked, p)
		a.titles = append(a.titles, message(p))

		switch r := resp.(type) {
		case *string:
			*r = ans.(string)
		case *bool:
			*r = ans.(bool)
		case *[]string:
			*r = ans.([]string)
		default:
			Fail("unsupported response type")
		}

		return nil
	}).AnyTimes()
}

func message(p survey.Prompt) string {
	switch q := p.(type) {
	case *survey.Input:
		return q.Message
	case *survey.Confirm:
		return q.Message
	case *survey.Select:
		return q.Message
	case *survey.MultiSelect:
		return q.Message
	case *survey.Multiline:
		return q.Message
	case *survey.Password:
		return q.Message
	default:
		return ""
	}
}

func parse(doc string) *elements.Document {
	d, err := elements.Parse([]byte(doc))
	Expect(err).ToNot(HaveOccurred())
	return d
}

const contactForm = `
'#title': Contact us
name:
  '#type': textfield
  '#title': Name
  '#required': true
email:
  '#type': email
  '#title': Email
contact_me:
  '#type': checkbox
  '#title': Contact me
method:
  '#type': radios
  '#title': Method
  '#options':
    email: By email
    phone: By phone
  '#states':
    visible:
      ':input[name="contact_me"]': {checked: true}
thanks:
  '#type': markup
  '#markup': 'Thanks {{ .input.name }}'
`

var _ = Describe("Fill", func() {
	var (
		ctrl *gomock.Controller
		mock *Mocksurveyor
		out  *bytes.Buffer
		ans  *answers
		opts []Option
	)

	BeforeEach(func() {
		ctrl = gomock.NewController(GinkgoT())
		mock = NewMocksurveyor(ctrl)
		out = &bytes.Buffer{}
		ans = &answers{}
		ans.expect(mock)
		opts = []Option{
			withSurveyor(mock),
			withIsTerminal(func() bool { return true }),
			withOutput(out),
		}
	})

	AfterEach(func() {
		Expect(ans.queue).To(BeEmpty())
		ctrl.Finish()
	})

	It("Should fail when not a terminal", func() {
		_, err := Fill(parse(contactForm), nil, withSurveyor(mock), withIsTerminal(func() bool { return false }), withOutput(io.Discard))
		Expect(err).To(MatchError("can only fill forms on a valid terminal"))
	})

	It("Should fail without elements", func() {
		_, err := Fill(parse(`'#title': empty`), nil, opts...)
		Expect(err).To(MatchError("no elements defined"))
	})

	It("Should fail for invalid documents", func() {
		_, err := Fill(parse("a:\n  '#type': nope\n"), nil, opts...)
		Expect(err).To(MatchError(`invalid element structure at "a": unknown element type "nope"`))
	})

	It("Should collect visible elements in order", func() {
		ans.queue = []any{"Bob", "bob@example.net", true, "By phone"}

		res, err := Fill(parse(contactForm), nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{
			"name":       "Bob",
			"email":      "bob@example.net",
			"contact_me": true,
			"method":     "phone",
		}))
		Expect(ans.titles).To(Equal([]string{"Name", "Email", "Contact me", "Method"}))
		Expect(out.String()).To(ContainSubstring("Contact us"))
		Expect(out.String()).To(ContainSubstring("Thanks Bob"))
	})

	It("Should skip hidden elements and omit empty answers", func() {
		ans.queue = []any{"Bob", "", false}

		res, err := Fill(parse(contactForm), nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"name": "Bob", "contact_me": false}))
	})

	It("Should skip everything inside hidden containers", func() {
		doc := parse(`
more:
  '#type': checkbox
  '#title': More
extra:
  '#type': details
  '#title': Extra
  '#states':
    visible:
      more: {checked: true}
  reason:
    '#type': textfield
  detail:
    '#type': textarea
`)
		ans.queue = []any{false}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"more": false}))
		Expect(out.String()).ToNot(ContainSubstring("Extra"))
	})

	It("Should collect multiple values row by row", func() {
		doc := parse(`
tags:
  '#type': textfield
  '#title': Tags
  '#multiple': true
`)
		ans.queue = []any{true, "a", true, " b ", false}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"tags": []any{"a", "b"}}))
		Expect(ans.titles).To(Equal([]string{
			"Add first 'Tags' entry", "Tags #1",
			"Add additional 'Tags' entry", "Tags #2",
			"Add additional 'Tags' entry",
		}))
	})

	It("Should stop at the limit and not confirm the first required row", func() {
		doc := parse(`
tags:
  '#type': textfield
  '#title': Tags
  '#multiple': 2
  '#required': true
`)
		ans.queue = []any{"a", true, "b"}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"tags": []any{"a", "b"}}))
	})

	It("Should drop default rows the user declined", func() {
		doc := parse(`
tags:
  '#type': textfield
  '#title': Tags
  '#multiple': true
  '#default_value': [x, y, z]
`)
		ans.queue = []any{true, "x", false}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"tags": []any{"x"}}))

		first := ans.asked[0].(*survey.Confirm)
		Expect(first.Default).To(BeTrue())
		Expect(ans.asked[1].(*survey.Input).Default).To(Equal("x"))
	})

	It("Should return an empty list when no rows are added", func() {
		doc := parse(`
tags:
  '#type': textfield
  '#multiple': true
`)
		ans.queue = []any{false}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"tags": []any{}}))
	})

	It("Should collect composite values", func() {
		doc := parse(`
site:
  '#type': link
  '#title': Website
`)
		ans.queue = []any{"Home", "https://example.net"}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"site": map[string]any{"title": "Home", "url": "https://example.net"}}))
	})

	It("Should collect multiple composite values", func() {
		doc := parse(`
people:
  '#type': custom_composite
  '#title': People
  '#multiple': true
  '#element':
    first:
      '#type': textfield
      '#title': First
    age:
      '#type': number
      '#title': Age
`)
		ans.queue = []any{true, "Ann", "41", false}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"people": []any{map[string]any{"first": "Ann", "age": 41}}}))
	})

	It("Should handle choices, numbers and passwords", func() {
		doc := parse(`
topics:
  '#type': checkboxes
  '#title': Topics
  '#options': {sales: Sales, billing: Billing, abuse: Abuse}
size:
  '#type': select
  '#title': Sizes
  '#multiple': true
  '#options': [s, m, l]
rating:
  '#type': number
  '#title': Rating
secret:
  '#type': password
  '#title': Secret
notes:
  '#type': textarea
  '#title': Notes
`)
		ans.queue = []any{[]string{"Abuse", "Sales"}, []string{"m"}, "4.5", "s3cret", "line one"}

		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{
			"topics": []any{"sales", "abuse"},
			"size":   []any{"m"},
			"rating": 4.5,
			"secret": "s3cret",
			"notes":  "line one",
		}))

		Expect(ans.asked[3]).To(BeAssignableToTypeOf(&survey.Password{}))
		Expect(ans.asked[4]).To(BeAssignableToTypeOf(&survey.Multiline{}))
	})

	It("Should set values without prompting", func() {
		doc := parse(`
source:
  '#type': value
  '#value': cli
token:
  '#type': hidden
  '#default_value': abc
`)
		res, err := Fill(doc, nil, opts...)
		Expect(err).ToNot(HaveOccurred())
		Expect(res).To(Equal(map[string]any{"source": "cli", "token": "abc"}))
	})

	It("Should use supplied values as defaults", func() {
		ans.queue = []any{"Bob", "", true, "By email"}

		_, err := Fill(parse(contactForm), nil, append(opts, WithValues(map[string]any{"name": "Bob", "method": "email"}))...)
		Expect(err).ToNot(HaveOccurred())

		Expect(ans.asked[0].(*survey.Input).Default).To(Equal("Bob"))
		Expect(ans.asked[3].(*survey.Select).Default).To(Equal("By email"))
	})
})

var _ = Describe("ColorMarkup", func() {
	It("Should handle no color markup", func() {
		Expect(colorMarkup("Hello World")).To(Equal("Hello World"))
	})

	It("Should color tags", func() {
		Expect(colorMarkup("{red}Hello{/red} {Blue}World{/Blue}")).To(Equal(text.Colors{text.FgRed}.Sprint("Hello") + " " + text.Colors{text.FgBlue}.Sprint("World")))
	})

	It("Should handle nested tags", func() {
		expected := text.Colors{text.FgRed}.Sprint("Outer " + text.Colors{text.FgGreen}.Sprint("Inner") + " Text")
		Expect(colorMarkup("{red}Outer {green}Inner{/green} Text{/red}")).To(Equal(expected))
	})

	It("Should handle nested tags of the same color", func() {
		expected := text.Colors{text.Bold}.Sprint("a " + text.Colors{text.Bold}.Sprint("b") + " c")
		Expect(colorMarkup("{bold}a {bold}b{/bold} c{/bold}")).To(Equal(expected))
	})

	It("Should remove unknown tags", func() {
		Expect(colorMarkup("{red}Valid{/red} {invalid}Invalid{/invalid}")).To(Equal(text.Colors{text.FgRed}.Sprint("Valid") + " Invalid"))
	})

	It("Should keep unbalanced tags and template braces", func() {
		Expect(colorMarkup("{red}open")).To(Equal("{red}open"))
		Expect(colorMarkup("map{a: 1}")).To(Equal("map{a: 1}"))
		Expect(colorMarkup("{}")).To(Equal("{}"))
	})
})
