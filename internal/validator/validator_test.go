// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package validator

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestValidator(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Validator")
}

var _ = Describe("Validator", func() {
	Describe("Validate", func() {
		DescribeTable("Expressions",
			func(env map[string]any, expression string, expected bool) {
				ok, err := Validate(env, expression)
				Expect(err).ToNot(HaveOccurred())
				Expect(ok).To(Equal(expected))
			},
			Entry("equality", map[string]any{"input": map[string]any{"a": "x"}}, `input.a == "x"`, true),
			Entry("numbers", map[string]any{"value": 10}, `value > 5 && value < 20`, true),
			Entry("undefined", nil, `missing == nil`, true),
			Entry("isInt", map[string]any{"value": "12"}, `isInt(value)`, true),
			Entry("not isInt", map[string]any{"value": "1.2"}, `isInt(value)`, false),
			Entry("isFloat", map[string]any{"value": "1.2"}, `isFloat(value)`, true),
			Entry("isEmail", map[string]any{"value": "bob@example.net"}, `isEmail(value)`, true),
			Entry("not isEmail", map[string]any{"value": "bob"}, `isEmail(value)`, false),
			Entry("isURL", map[string]any{"value": "https://example.net/x"}, `isURL(value)`, true),
			Entry("isEmpty", map[string]any{"value": "  "}, `isEmpty(value)`, true),
			Entry("matches", map[string]any{"value": "abc123"}, `value matches "^[a-z]+[0-9]+$"`, true),
		)

		It("Should fail for non boolean expressions", func() {
			_, err := Validate(map[string]any{"value": 1}, `value + 1`)
			Expect(err).To(HaveOccurred())
		})

		It("Should fail for invalid expressions", func() {
			_, err := Validate(nil, `value ==`)
			Expect(err).To(MatchError(ContainSubstring(`invalid expression "value =="`)))
		})
	})

	Describe("SurveyValidator", func() {
		It("Should pass empty optional answers", func() {
			v := SurveyValidator(`isInt(value)`, false)
			Expect(v("")).To(Succeed())
		})

		It("Should check required answers", func() {
			v := SurveyValidator(`isInt(value)`, true)
			Expect(v("")).To(MatchError(`validation using "isInt(value)" did not pass`))
			Expect(v("10")).To(Succeed())
		})
	})
})
