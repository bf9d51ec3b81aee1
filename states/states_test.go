// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package states

import (
	"errors"
	"fmt"
	"testing"

	"github.com/choria-io/formtree/elements"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestStates(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "States")
}

type warnings []string

func (w *warnings) Warnf(format string, v ...any) {
	*w = append(*w, fmt.Sprintf(format, v...))
}

func parseNode(doc string, key string) *elements.Node {
	d, err := elements.Parse([]byte(doc))
	Expect(err).ToNot(HaveOccurred())

	n, _ := d.Find(key)
	Expect(n).ToNot(BeNil())

	return n
}

func isRuleError(err error) bool {
	var rerr *elements.RuleEvaluationError
	return errors.As(err, &rerr)
}

const contactStates = `
contact_me:
  '#type': checkbox
method:
  '#type': select
  '#options': [email, phone, both]
email:
  '#type': email
  '#states':
    visible:
      ':input[name="contact_me"]':
        checked: true
    required:
      - ':input[name="method"]': {value: email}
      - or
      - ':input[name="method"]': {value: both}
`

var _ = Describe("States", func() {
	Describe("ParseSelector", func() {
		DescribeTable("Selectors",
			func(selector string, key string, sub string) {
				k, s := ParseSelector(selector)
				Expect(k).To(Equal(key))
				Expect(s).To(Equal(sub))
			},
			Entry("input", `:input[name="contact_me"]`, "contact_me", ""),
			Entry("single quotes", `:input[name='contact_me']`, "contact_me", ""),
			Entry("sub key", `:input[name="address[city]"]`, "address", "city"),
			Entry("unquoted", `:input[name=topic]`, "topic", ""),
			Entry("bare key", `topic`, "topic", ""),
			Entry("bare sub key", `options[sales]`, "options", "sales"),
			Entry("unterminated", `options[sales`, "", ""),
		)
	})

	Describe("Parse", func() {
		It("Should parse mapping and sequence triggers", func() {
			rules, err := Parse(parseNode(contactStates, "email"))
			Expect(err).ToNot(HaveOccurred())
			Expect(rules).To(HaveLen(2))

			Expect(rules[0]).To(Equal(RuleSet{
				Owner:       "email",
				Effect:      Visible,
				Conjunction: AndConjunction,
				Selectors:   []Selector{{Key: "contact_me", Condition: CheckedCondition}},
			}))

			Expect(rules[1].Effect).To(Equal(Required))
			Expect(rules[1].Conjunction).To(Equal(OrConjunction))
			Expect(rules[1].Selectors).To(Equal([]Selector{
				{Key: "method", Condition: ValueCondition, Value: "email"},
				{Key: "method", Condition: ValueCondition, Value: "both"},
			}))
		})

		It("Should produce no rules without states", func() {
			rules, err := Parse(parseNode(contactStates, "method"))
			Expect(err).ToNot(HaveOccurred())
			Expect(rules).To(BeEmpty())
		})

		It("Should invert negated conditions", func() {
			n := parseNode(`
a:
  '#type': textfield
  '#states':
    invisible:
      b: {checked: false}
      c: {empty: false}
`, "a")
			rules, err := Parse(n)
			Expect(err).ToNot(HaveOccurred())
			Expect(rules[0].Selectors).To(Equal([]Selector{
				{Key: "b", Condition: UncheckedCondition},
				{Key: "c", Condition: FilledCondition},
			}))
		})

		DescribeTable("Invalid states",
			func(states string, reason string) {
				n := parseNode(fmt.Sprintf("a:\n  '#type': textfield\n  '#states': %s\n", states), "a")
				_, err := Parse(n)
				Expect(isRuleError(err)).To(BeTrue())
				Expect(err).To(MatchError(ContainSubstring(reason)))
			},
			Entry("unknown effect", `{shiny: {b: {checked: true}}}`, `unknown effect "shiny"`),
			Entry("unknown condition", `{visible: {b: {sparkly: true}}}`, "unsupported condition"),
			Entry("two conditions", `{visible: {b: {checked: true, empty: true}}}`, "needs exactly one condition"),
			Entry("mixed conjunctions", `{visible: [{b: {checked: true}}, or, {c: {checked: true}}, xor, {d: {checked: true}}]}`, "cannot mix"),
			Entry("bad conjunction", `{visible: [{b: {checked: true}}, nand, {c: {checked: true}}]}`, `unknown conjunction "nand"`),
			Entry("not a mapping", `[visible]`, "must be a mapping"),
			Entry("non string expression", `{visible: {b: {expression: 1}}}`, "expression must be a string"),
		)
	})

	Describe("Evaluate", func() {
		DescribeTable("Conditions",
			func(sel Selector, values map[string]any, expected bool) {
				res, err := Evaluate(sel, values)
				Expect(err).ToNot(HaveOccurred())
				Expect(res).To(Equal(expected))
			},
			Entry("checked", Selector{Key: "a", Condition: CheckedCondition}, map[string]any{"a": true}, true),
			Entry("not checked", Selector{Key: "a", Condition: CheckedCondition}, map[string]any{"a": false}, false),
			Entry("unchecked", Selector{Key: "a", Condition: UncheckedCondition}, map[string]any{"a": 0}, true),
			Entry("checkboxes option", Selector{Key: "a", Sub: "sales", Condition: CheckedCondition}, map[string]any{"a": []any{"sales"}}, true),
			Entry("checkboxes other option", Selector{Key: "a", Sub: "abuse", Condition: CheckedCondition}, map[string]any{"a": []any{"sales"}}, false),
			Entry("empty", Selector{Key: "a", Condition: EmptyCondition}, map[string]any{"a": " "}, true),
			Entry("filled", Selector{Key: "a", Condition: FilledCondition}, map[string]any{"a": "x"}, true),
			Entry("empty list", Selector{Key: "a", Condition: EmptyCondition}, map[string]any{"a": []any{}}, true),
			Entry("composite sub", Selector{Key: "a", Sub: "city", Condition: FilledCondition}, map[string]any{"a": map[string]any{"city": "Cape Town"}}, true),
			Entry("equal", Selector{Key: "a", Condition: ValueCondition, Value: "email"}, map[string]any{"a": "email"}, true),
			Entry("not equal", Selector{Key: "a", Condition: ValueCondition, Value: "email"}, map[string]any{"a": "phone"}, false),
			Entry("number equal", Selector{Key: "a", Condition: ValueCondition, Value: 1}, map[string]any{"a": "1"}, true),
			Entry("membership", Selector{Key: "a", Condition: ValueCondition, Value: "b"}, map[string]any{"a": []any{"a", "b"}}, true),
			Entry("pattern", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"pattern": "^[0-9]{4}$"}}, map[string]any{"a": "8001"}, true),
			Entry("not pattern", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"!pattern": "^[0-9]{4}$"}}, map[string]any{"a": "8001"}, false),
			Entry("greater", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"greater": 10}}, map[string]any{"a": "11"}, true),
			Entry("greater_equal", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"greater_equal": 10}}, map[string]any{"a": 10}, true),
			Entry("less", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"less": 10}}, map[string]any{"a": 10}, false),
			Entry("less_equal", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"less_equal": 10}}, map[string]any{"a": 9.5}, true),
			Entry("between", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"between": "1:5"}}, map[string]any{"a": 5}, true),
			Entry("outside", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"between": "1:5"}}, map[string]any{"a": 6}, false),
			Entry("non numeric", Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"greater": 1}}, map[string]any{"a": "x"}, false),
			Entry("expression", Selector{Key: "a", Condition: ExpressionCondition, Value: `value > 3 && input.b == "x"`}, map[string]any{"a": 4, "b": "x"}, true),
		)

		It("Should treat missing elements as empty and log them", func() {
			w := &warnings{}
			e := NewEvaluator(WithLogger(w))

			cases := map[Condition]bool{
				EmptyCondition:     true,
				FilledCondition:    false,
				CheckedCondition:   false,
				UncheckedCondition: true,
			}

			for c, expected := range cases {
				res, err := e.Evaluate(Selector{Key: "ghost", Condition: c}, map[string]any{})
				Expect(err).ToNot(HaveOccurred())
				Expect(res).To(Equal(expected), string(c))
			}

			Expect(*w).To(HaveLen(4))
			Expect((*w)[0]).To(ContainSubstring(`missing element "ghost"`))
		})

		It("Should fail for unknown conditions", func() {
			_, err := Evaluate(Selector{Key: "a", Condition: "sparkly"}, map[string]any{"a": 1})
			Expect(isRuleError(err)).To(BeTrue())
			Expect(err).To(MatchError(`invalid state rule for "a" condition "sparkly": unsupported condition`))
		})

		It("Should fail for invalid operands", func() {
			_, err := Evaluate(Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"pattern": "("}}, map[string]any{"a": "x"})
			Expect(isRuleError(err)).To(BeTrue())

			_, err = Evaluate(Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"between": "x"}}, map[string]any{"a": 1})
			Expect(isRuleError(err)).To(BeTrue())

			_, err = Evaluate(Selector{Key: "a", Condition: ValueCondition, Value: map[string]any{"roughly": 1}}, map[string]any{"a": 1})
			Expect(isRuleError(err)).To(BeTrue())

			_, err = Evaluate(Selector{Key: "a", Condition: ExpressionCondition, Value: "a +"}, map[string]any{"a": 1})
			Expect(isRuleError(err)).To(BeTrue())
		})
	})

	Describe("EvaluateRuleSet", func() {
		checked := Selector{Key: "a", Condition: CheckedCondition}
		unchecked := Selector{Key: "b", Condition: CheckedCondition}
		broken := Selector{Key: "a", Condition: "sparkly"}
		values := map[string]any{"a": true, "b": false}

		DescribeTable("Conjunctions",
			func(c Conjunction, sels []Selector, expected bool) {
				res, err := EvaluateRuleSet(RuleSet{Owner: "x", Conjunction: c, Selectors: sels}, values)
				Expect(err).ToNot(HaveOccurred())
				Expect(res).To(Equal(expected))
			},
			Entry("and", AndConjunction, []Selector{checked, checked}, true),
			Entry("and with false", AndConjunction, []Selector{checked, unchecked}, false),
			Entry("and short circuits", AndConjunction, []Selector{unchecked, broken}, false),
			Entry("or", OrConjunction, []Selector{unchecked, checked}, true),
			Entry("or short circuits", OrConjunction, []Selector{checked, broken}, true),
			Entry("or all false", OrConjunction, []Selector{unchecked, unchecked}, false),
			Entry("xor one", XorConjunction, []Selector{checked, unchecked}, true),
			Entry("xor both", XorConjunction, []Selector{checked, checked}, false),
			Entry("xor none", XorConjunction, []Selector{unchecked, unchecked}, false),
			Entry("empty and", AndConjunction, nil, true),
		)

		It("Should surface errors that are reached", func() {
			_, err := EvaluateRuleSet(RuleSet{Owner: "x", Conjunction: AndConjunction, Selectors: []Selector{checked, broken}}, values)
			Expect(isRuleError(err)).To(BeTrue())

			_, err = EvaluateRuleSet(RuleSet{Owner: "x", Conjunction: "nand", Selectors: []Selector{checked}}, values)
			Expect(err).To(MatchError(`invalid state rule for "x": unknown conjunction "nand"`))
		})
	})

	Describe("Resolve", func() {
		var (
			e     *Evaluator
			email *elements.Node
		)

		BeforeEach(func() {
			e = NewEvaluator()
			email = parseNode(contactStates, "email")
		})

		It("Should hide and not require when unchecked", func() {
			st, err := e.ResolveNode(email, map[string]any{"contact_me": false, "method": "phone"})
			Expect(err).ToNot(HaveOccurred())
			Expect(st).To(Equal(Status{Visible: false, Enabled: true, Required: false}))
		})

		It("Should show and require when selected", func() {
			st, err := e.ResolveNode(email, map[string]any{"contact_me": true, "method": "both"})
			Expect(err).ToNot(HaveOccurred())
			Expect(st).To(Equal(Status{Visible: true, Enabled: true, Required: true}))
		})

		It("Should keep #required when a required state does not match", func() {
			rules := []RuleSet{
				{Owner: "x", Effect: Required, Conjunction: AndConjunction, Selectors: []Selector{{Key: "other", Condition: CheckedCondition}}},
			}

			st, err := e.Resolve(rules, true, map[string]any{"other": false})
			Expect(err).ToNot(HaveOccurred())
			Expect(st.Required).To(BeTrue())

			st, err = e.Resolve(rules, false, map[string]any{"other": false})
			Expect(err).ToNot(HaveOccurred())
			Expect(st.Required).To(BeFalse())

			st, err = e.Resolve(rules, false, map[string]any{"other": true})
			Expect(err).ToNot(HaveOccurred())
			Expect(st.Required).To(BeTrue())
		})

		It("Should let optional states suppress required", func() {
			rules := []RuleSet{
				{Owner: "x", Effect: Optional, Conjunction: AndConjunction, Selectors: []Selector{{Key: "skip", Condition: CheckedCondition}}},
				{Owner: "x", Effect: Disabled, Conjunction: AndConjunction, Selectors: []Selector{{Key: "lock", Condition: CheckedCondition}}},
			}

			st, err := e.Resolve(rules, true, map[string]any{"skip": true, "lock": true})
			Expect(err).ToNot(HaveOccurred())
			Expect(st).To(Equal(Status{Visible: true, Enabled: false, Required: false, Suppressed: true}))

			st, err = e.Resolve(rules, true, map[string]any{"skip": false, "lock": false})
			Expect(err).ToNot(HaveOccurred())
			Expect(st).To(Equal(Status{Visible: true, Enabled: true, Required: true}))
		})
	})

	Describe("CheckDependencies", func() {
		It("Should accept acyclic states", func() {
			d, err := elements.Parse([]byte(contactStates))
			Expect(err).ToNot(HaveOccurred())
			Expect(CheckDependencies(d)).To(Succeed())

			deps, err := Dependencies(d)
			Expect(err).ToNot(HaveOccurred())
			Expect(deps).To(Equal(map[string][]string{"email": {"contact_me", "method"}}))
		})

		It("Should reject cycles", func() {
			d, err := elements.Parse([]byte(`
a:
  '#type': textfield
  '#states':
    visible:
      b: {filled: true}
b:
  '#type': textfield
  '#states':
    visible:
      c: {filled: true}
c:
  '#type': textfield
  '#states':
    required:
      a: {filled: true}
`))
			Expect(err).ToNot(HaveOccurred())

			err = CheckDependencies(d)
			var serr *elements.StructureError
			Expect(errors.As(err, &serr)).To(BeTrue())
			Expect(serr.Reason).To(Equal("cyclic state dependency a -> b -> c -> a"))
		})

		It("Should reject elements depending on themselves", func() {
			d, err := elements.Parse([]byte(`
a:
  '#type': textfield
  '#states':
    visible:
      a: {filled: true}
`))
			Expect(err).ToNot(HaveOccurred())
			Expect(CheckDependencies(d)).To(MatchError(`invalid element structure at "a": cyclic state dependency a -> a`))
		})
	})
})
