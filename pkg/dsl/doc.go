/*
Package dsl provides a fluent builder for constructing approval workflows in Go.

It is an alternative to YAML or JSON workflow files, useful for embedding,
dynamic generation and unit tests.

Example usage:

	b := dsl.New("expense").Name("Expense report")

	b.Start("start").Go("manager")
	b.Single("manager", "alice").Go("amount")
	b.Condition("amount").
		Rule("high", "out-high", dsl.And(dsl.Cond("amount", ">", 1000))).
		Default("out-low").
		On("out-high", "finance").
		On("out-low", "end")
	b.Parallel("finance", "bob", "carol").Go("end")
	b.End("end")

	wf, err := b.Build() // validated
*/
package dsl
