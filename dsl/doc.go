// Package dsl implements the bot scripting language: a tokenizer with
// significant indentation, a recursive-descent parser and a tree-walking
// interpreter that dispatches `call` statements to host tools.
//
// # Script Overview
//
// A script holds bot definitions and bare statements:
//
//	bot Support description "Front desk"
//	  on input when input contains "refund"
//	    call billing.lookup with {customer: user.id} as account
//	    if account.balance > 0
//	      say f"You have {account.balance} credit"
//	    else
//	      delegate to Billing with reason: "no credit"
//	  agent Billing
//	    on event "invoice.paid"
//	      say "Thanks for paying"
//	  end
//	end
//
// Bot, agent and memory blocks close with `end`. Other blocks are either
// indented under their header or written on the same line, and their
// `then` and `end` keywords are optional. A block written at its header's
// own indentation must be closed with `end`.
//
// A `return` records its value in Result.ReturnValue and execution
// continues. WithReturnExits makes it end the handler or bot instead.
//
// # Expressions
//
// Operators from lowest to highest precedence: ??, or, and, == !=,
// < > <= >= contains, + -, * / %, unary - and not. Member access
// (a.b, a[i]) binds tightest. Evaluation is permissive: a missing variable
// or a member of null is null, and looping over a non-array does nothing.
//
// F-strings interpolate full expressions: f"{user.name} has {n + 1}". A
// span that does not parse, or evaluates to null, is kept as written.
//
// # Running Scripts
//
//	interp := dsl.NewInterpreter(dsl.WithToolTimeout(10 * time.Second))
//	interp.RegisterTool("billing.lookup", lookup)
//	res, err := interp.Run(ctx, source, "I want a refund", nil)
//
// Run returns an error only for lexical and syntax errors. Tool failures
// and missing tools are collected in Result.Errors while the script keeps
// going. Bots registered by Run or Load stay registered, so EmitEvent and
// SendToAgent can reach their handlers later.
package dsl
