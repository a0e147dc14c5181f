package dsl

import (
	"fmt"
	"strconv"
)

// Parser builds a Program from a token stream by recursive descent. It
// stops at the first grammar violation.
type Parser struct {
	tokens []Token
	pos    int
}

// Parse tokenizes and parses source into a Program.
func Parse(source string) (*Program, error) {
	tokens, err := Tokenize(source)
	if err != nil {
		return nil, err
	}
	return NewParser(tokens).Parse()
}

// NewParser creates a parser over tokens produced by Tokenize.
func NewParser(tokens []Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse parses the whole token stream.
func (p *Parser) Parse() (*Program, error) {
	prog := &Program{}
	p.skipLayout()
	for !p.check(TokenEOF) {
		var (
			item Node
			err  error
		)
		if p.checkKeyword("bot") {
			item, err = p.parseBot()
		} else {
			item, err = p.parseStatement()
		}
		if err != nil {
			return nil, err
		}
		prog.Items = append(prog.Items, item)
		p.skipLayout()
	}
	return prog, nil
}

// ---------------------------------------------------------------------------
// Definitions
// ---------------------------------------------------------------------------

func (p *Parser) parseBot() (*BotDefinition, error) {
	tok := p.advance()
	name, err := p.expectDefinitionName("bot")
	if err != nil {
		return nil, err
	}
	bot := &BotDefinition{Position: position(tok), Name: name}
	if bot.Description, err = p.parseOptionalDescription(); err != nil {
		return nil, err
	}

	err = p.parseBody("bot", func() error {
		switch {
		case p.checkKeyword("description"):
			desc, err := p.parseOptionalDescription()
			if err != nil {
				return err
			}
			bot.Description = desc
		case p.checkKeyword("agent"):
			agent, err := p.parseAgent()
			if err != nil {
				return err
			}
			bot.Body = append(bot.Body, agent)
		case p.checkKeyword("on"):
			handler, err := p.parseHandler()
			if err != nil {
				return err
			}
			bot.Body = append(bot.Body, handler)
		case p.checkKeyword("memory"):
			mem, err := p.parseMemory()
			if err != nil {
				return err
			}
			bot.Memory = append(bot.Memory, mem)
		default:
			stmt, err := p.parseStatement()
			if err != nil {
				return err
			}
			bot.Body = append(bot.Body, stmt)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("end", "to close bot "+name); err != nil {
		return nil, err
	}
	return bot, nil
}

func (p *Parser) parseAgent() (*AgentDefinition, error) {
	tok := p.advance()
	name, err := p.expectDefinitionName("agent")
	if err != nil {
		return nil, err
	}
	agent := &AgentDefinition{Position: position(tok), Name: name}
	if agent.Description, err = p.parseOptionalDescription(); err != nil {
		return nil, err
	}

	err = p.parseBody("agent", func() error {
		switch {
		case p.checkKeyword("description"):
			desc, err := p.parseOptionalDescription()
			if err != nil {
				return err
			}
			agent.Description = desc
		case p.checkKeyword("on"):
			handler, err := p.parseHandler()
			if err != nil {
				return err
			}
			agent.Handlers = append(agent.Handlers, handler)
		default:
			return p.errorf(p.current(), "expected handler in agent %s, got %s", name, p.current())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("end", "to close agent "+name); err != nil {
		return nil, err
	}
	return agent, nil
}

// parseBody parses the items of a bot, agent or memory block. The body is
// either indented under its header or written flat up to the closing `end`.
func (p *Parser) parseBody(kind string, item func() error) error {
	p.skipNewlines()
	if p.check(TokenIndent) {
		p.advance()
		for {
			p.skipNewlines()
			if p.check(TokenDedent) {
				p.advance()
				p.skipNewlines()
				return nil
			}
			if p.check(TokenEOF) {
				return p.errorf(p.current(), "unexpected end of input in %s", kind)
			}
			if err := item(); err != nil {
				return err
			}
		}
	}
	for !p.checkKeyword("end") {
		if p.check(TokenEOF) {
			return &SyntaxError{
				Line:    p.current().Line,
				Column:  p.current().Column,
				Message: fmt.Sprintf("unexpected end of input in %s", kind),
				Hint:    fmt.Sprintf("close the %s with `end`", kind),
			}
		}
		if err := item(); err != nil {
			return err
		}
		p.skipNewlines()
	}
	return nil
}

func (p *Parser) parseOptionalDescription() (string, error) {
	if !p.checkKeyword("description") {
		return "", nil
	}
	p.advance()
	tok := p.current()
	if tok.Type != TokenString {
		return "", p.errorf(tok, "expected description string, got %s", tok)
	}
	p.advance()
	return tok.Literal, nil
}

func (p *Parser) parseHandler() (Node, error) {
	tok := p.advance()
	switch {
	case p.checkKeyword("input"):
		p.advance()
		handler := &OnInputHandler{Position: position(tok)}
		if p.checkKeyword("when") {
			p.advance()
			guard, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			handler.Guard = guard
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		handler.Body = body
		p.acceptEnd()
		return handler, nil

	case p.checkKeyword("event"):
		p.advance()
		nameTok := p.current()
		if nameTok.Type != TokenString && nameTok.Type != TokenIdent {
			return nil, p.errorf(nameTok, "expected event name, got %s", nameTok)
		}
		p.advance()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		p.acceptEnd()
		return &OnEventHandler{Position: position(tok), Event: nameTok.Literal, Body: body}, nil
	}
	return nil, &SyntaxError{
		Line:    p.current().Line,
		Column:  p.current().Column,
		Message: fmt.Sprintf("expected `input` or `event` after `on`, got %s", p.current()),
		Hint:    `use "on input [when <expr>]" or "on event \"<name>\""`,
	}
}

// parseMemory parses a memory declaration. Declarations are validated and
// recorded but carry no runtime behavior.
func (p *Parser) parseMemory() (*MemoryBlock, error) {
	tok := p.advance()
	name, err := p.expectIdent("memory name")
	if err != nil {
		return nil, err
	}
	mem := &MemoryBlock{Position: position(tok), Name: name}
	err = p.parseBody("memory", func() error {
		if _, err := p.expectKeyword("var", "in memory "+name); err != nil {
			return err
		}
		varName, err := p.expectIdent("memory variable name")
		if err != nil {
			return err
		}
		v := MemoryVar{Name: varName}
		if p.check(TokenIdent) {
			v.Type = p.advance().Literal
		}
		mem.Vars = append(mem.Vars, v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("end", "to close memory "+name); err != nil {
		return nil, err
	}
	return mem, nil
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// parseBlock parses either an indented block following a newline or a
// single statement on the same line.
func (p *Parser) parseBlock() (*Block, error) {
	block := &Block{Position: position(p.current())}
	if !p.check(TokenNewline) {
		if p.checkKeyword("end") || p.check(TokenEOF) || p.check(TokenDedent) {
			return block, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
		return block, nil
	}

	p.skipNewlines()
	if !p.check(TokenIndent) {
		return p.parseFlatBlock(block)
	}
	p.advance()
	for {
		p.skipNewlines()
		if p.check(TokenDedent) {
			p.advance()
			return block, nil
		}
		if p.check(TokenEOF) {
			return block, nil
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
}

// parseFlatBlock parses a body written at its header's indentation. The
// body runs up to the `end`, `elif` or `else` that closes it, which is left
// for the caller.
func (p *Parser) parseFlatBlock(block *Block) (*Block, error) {
	for {
		p.skipNewlines()
		switch {
		case p.checkKeyword("end"), p.checkKeyword("elif"), p.checkKeyword("else"):
			return block, nil
		case len(block.Statements) == 0 && (p.checkKeyword("on") || p.checkKeyword("agent") || p.checkKeyword("memory")):
			return block, nil
		case p.check(TokenEOF), p.check(TokenDedent):
			if len(block.Statements) == 0 {
				return block, nil
			}
			return nil, &SyntaxError{
				Line:    p.current().Line,
				Column:  p.current().Column,
				Message: fmt.Sprintf("expected indented block or `end`, got %s", p.current()),
				Hint:    "indent the block under its header, or close it with `end`",
			}
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.Statements = append(block.Statements, stmt)
	}
}

func (p *Parser) parseStatement() (Statement, error) {
	tok := p.current()
	if tok.Type == TokenKeyword {
		switch tok.Literal {
		case "if":
			return p.parseIf()
		case "call":
			return p.parseCall()
		case "say":
			return p.parseSay()
		case "set":
			return p.parseSet()
		case "delegate":
			return p.parseDelegate()
		case "return":
			return p.parseReturn()
		case "loop":
			return p.parseLoop()
		case "parallel":
			return p.parseParallel()
		}
	}
	if tok.Type == TokenIdent && p.peek(1).is(TokenPunct, "=") {
		p.advance()
		p.advance()
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return &Assignment{Position: position(tok), Name: tok.Literal, Value: value}, nil
	}
	return nil, p.errorf(tok, "unexpected %s, expected a statement", tok)
}

func (p *Parser) parseIf() (*IfStatement, error) {
	tok := p.advance()
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.acceptKeyword("then")
	cons, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &IfStatement{Position: position(tok), Condition: cond, Consequent: cons}

	next := p.peekPastNewlines()
	switch {
	case next.is(TokenKeyword, "elif"):
		p.skipNewlines()
		alt, err := p.parseIf()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = alt
		return stmt, nil

	case next.is(TokenKeyword, "else"):
		p.skipNewlines()
		p.advance()
		if p.checkKeyword("if") {
			alt, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			stmt.Alternate = alt
			return stmt, nil
		}
		alt, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Alternate = alt
	}
	p.acceptEnd()
	return stmt, nil
}

func (p *Parser) parseCall() (*CallStatement, error) {
	tok := p.advance()
	name, err := p.expectName("tool name")
	if err != nil {
		return nil, err
	}
	for p.checkPunct(".") {
		p.advance()
		seg, err := p.expectName("tool name segment")
		if err != nil {
			return nil, err
		}
		name += "." + seg
	}
	stmt := &CallStatement{Position: position(tok), Tool: name}

	if p.checkKeyword("with") {
		p.advance()
		if stmt.Args, err = p.parseArguments(); err != nil {
			return nil, err
		}
	}
	if p.checkKeyword("as") {
		p.advance()
		if stmt.Output, err = p.expectIdent("output variable"); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

// parseArguments parses `{k: v, ...}` or the brace-less single-line form
// `k: v, k2: v2`.
func (p *Parser) parseArguments() ([]Argument, error) {
	if !p.checkPunct("{") {
		var args []Argument
		for {
			arg, err := p.parseArgument()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.checkPunct(",") {
				return args, nil
			}
			p.advance()
		}
	}

	p.advance()
	var args []Argument
	for !p.checkPunct("}") {
		arg, err := p.parseArgument()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.checkPunct(",") {
			p.advance()
			continue
		}
		if !p.checkPunct("}") {
			return nil, p.errorf(p.current(), "expected `,` or `}` in arguments, got %s", p.current())
		}
	}
	p.advance()
	return args, nil
}

func (p *Parser) parseArgument() (Argument, error) {
	key, err := p.parseKey("argument name")
	if err != nil {
		return Argument{}, err
	}
	if _, err := p.expectPunct(":"); err != nil {
		return Argument{}, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return Argument{}, err
	}
	return Argument{Name: key, Value: value}, nil
}

func (p *Parser) parseSay() (*SayStatement, error) {
	tok := p.advance()
	msg, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &SayStatement{Position: position(tok), Message: msg}, nil
}

func (p *Parser) parseSet() (*Assignment, error) {
	tok := p.advance()
	name, err := p.expectIdent("variable name")
	if err != nil {
		return nil, err
	}
	switch {
	case p.checkKeyword("to"), p.checkPunct("="):
		p.advance()
	default:
		return nil, &SyntaxError{
			Line:    p.current().Line,
			Column:  p.current().Column,
			Message: fmt.Sprintf("expected `to` or `=` after set %s, got %s", name, p.current()),
			Hint:    fmt.Sprintf("set %s to <value>", name),
		}
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &Assignment{Position: position(tok), Name: name, Value: value}, nil
}

func (p *Parser) parseDelegate() (*DelegateStatement, error) {
	tok := p.advance()
	if _, err := p.expectKeyword("to", "after delegate"); err != nil {
		return nil, err
	}
	agent, err := p.expectDefinitionName("agent")
	if err != nil {
		return nil, err
	}
	stmt := &DelegateStatement{Position: position(tok), Agent: agent}
	if p.checkKeyword("with") {
		p.advance()
		if stmt.Args, err = p.parseArguments(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseReturn() (*ReturnStatement, error) {
	tok := p.advance()
	stmt := &ReturnStatement{Position: position(tok)}
	switch {
	case p.check(TokenNewline), p.check(TokenDedent), p.check(TokenEOF), p.checkKeyword("end"):
		return stmt, nil
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt.Value = value
	return stmt, nil
}

func (p *Parser) parseLoop() (*LoopStatement, error) {
	tok := p.advance()
	name, err := p.expectIdent("loop variable")
	if err != nil {
		return nil, err
	}
	if _, err := p.expectKeyword("in", "after loop variable"); err != nil {
		return nil, err
	}
	iter, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	p.acceptEnd()
	return &LoopStatement{Position: position(tok), Variable: name, Iterable: iter, Body: body}, nil
}

func (p *Parser) parseParallel() (*ParallelBlock, error) {
	tok := p.advance()
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	p.acceptEnd()
	return &ParallelBlock{Position: position(tok), Statements: body.Statements}, nil
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() (Expression, error) {
	return p.parseNullish()
}

func (p *Parser) parseNullish() (Expression, error) {
	return p.parseBinary(p.parseOr, func(t Token) bool { return t.is(TokenOperator, "??") })
}

func (p *Parser) parseOr() (Expression, error) {
	return p.parseBinary(p.parseAnd, func(t Token) bool { return t.is(TokenKeyword, "or") })
}

func (p *Parser) parseAnd() (Expression, error) {
	return p.parseBinary(p.parseEquality, func(t Token) bool { return t.is(TokenKeyword, "and") })
}

func (p *Parser) parseEquality() (Expression, error) {
	return p.parseBinary(p.parseComparison, func(t Token) bool {
		return t.is(TokenOperator, "==") || t.is(TokenOperator, "!=")
	})
}

func (p *Parser) parseComparison() (Expression, error) {
	return p.parseBinary(p.parseAdditive, func(t Token) bool {
		if t.Type == TokenOperator {
			switch t.Literal {
			case ">", "<", ">=", "<=":
				return true
			}
		}
		return t.is(TokenKeyword, "contains")
	})
}

func (p *Parser) parseAdditive() (Expression, error) {
	return p.parseBinary(p.parseMultiplicative, func(t Token) bool {
		return t.is(TokenOperator, "+") || t.is(TokenOperator, "-")
	})
}

func (p *Parser) parseMultiplicative() (Expression, error) {
	return p.parseBinary(p.parseUnary, func(t Token) bool {
		return t.is(TokenOperator, "*") || t.is(TokenOperator, "/") || t.is(TokenOperator, "%")
	})
}

// parseBinary parses a left-associative chain of operators matched by isOp
// with operands parsed by next.
func (p *Parser) parseBinary(next func() (Expression, error), isOp func(Token) bool) (Expression, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for isOp(p.current()) {
		op := p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &BinaryExpression{Position: position(op), Operator: op.Literal, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseUnary() (Expression, error) {
	tok := p.current()
	if tok.is(TokenOperator, "-") || tok.is(TokenKeyword, "not") {
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpression{Position: position(tok), Operator: tok.Literal, Operand: operand}, nil
	}
	return p.parsePostfix()
}

// parsePostfix attaches [index] and .name accessors to a primary. Plain
// dotted chains on an identifier collapse into a VariableAccess.
func (p *Parser) parsePostfix() (Expression, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		switch {
		case tok.is(TokenPunct, "["):
			p.advance()
			index, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			expr = &MemberExpression{Position: position(tok), Object: expr, Property: index, Computed: true}

		case tok.is(TokenPunct, "."):
			p.advance()
			nameTok := p.current()
			var name string
			switch nameTok.Type {
			case TokenIdent, TokenKeyword, TokenNumber:
				name = nameTok.Literal
				p.advance()
			default:
				return nil, p.errorf(nameTok, "expected property name after `.`, got %s", nameTok)
			}
			switch e := expr.(type) {
			case *Identifier:
				expr = &VariableAccess{Position: e.Position, Path: []string{e.Name, name}}
			case *VariableAccess:
				path := append(append([]string(nil), e.Path...), name)
				expr = &VariableAccess{Position: e.Position, Path: path}
			default:
				prop := &Identifier{Position: position(nameTok), Name: name}
				expr = &MemberExpression{Position: position(tok), Object: expr, Property: prop}
			}

		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (Expression, error) {
	tok := p.current()
	switch tok.Type {
	case TokenString:
		p.advance()
		return &Literal{Position: position(tok), Value: tok.Literal}, nil
	case TokenFString:
		p.advance()
		return parseFString(tok), nil
	case TokenNumber:
		p.advance()
		return &Literal{Position: position(tok), Value: tok.Value}, nil
	case TokenIdent:
		p.advance()
		return &Identifier{Position: position(tok), Name: tok.Literal}, nil
	case TokenKeyword:
		switch tok.Literal {
		case "true", "false":
			p.advance()
			return &Literal{Position: position(tok), Value: tok.Value}, nil
		case "null":
			p.advance()
			return &Literal{Position: position(tok)}, nil
		case "input", "event":
			p.advance()
			return &Identifier{Position: position(tok), Name: tok.Literal}, nil
		}
	case TokenPunct:
		switch tok.Literal {
		case "(":
			p.advance()
			expr, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(")"); err != nil {
				return nil, err
			}
			return expr, nil
		case "[":
			return p.parseArray()
		case "{":
			return p.parseObject()
		}
	}
	return nil, p.errorf(tok, "expected expression, got %s", tok)
}

func (p *Parser) parseArray() (*ArrayLiteral, error) {
	tok := p.advance()
	arr := &ArrayLiteral{Position: position(tok)}
	for !p.checkPunct("]") {
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		arr.Elements = append(arr.Elements, elem)
		if p.checkPunct(",") {
			p.advance()
			continue
		}
		if !p.checkPunct("]") {
			return nil, p.errorf(p.current(), "expected `,` or `]` in array, got %s", p.current())
		}
	}
	p.advance()
	return arr, nil
}

func (p *Parser) parseObject() (*ObjectLiteral, error) {
	tok := p.advance()
	obj := &ObjectLiteral{Position: position(tok)}
	for !p.checkPunct("}") {
		key, err := p.parseKey("object key")
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(":"); err != nil {
			return nil, err
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		obj.Properties = append(obj.Properties, Property{Key: key, Value: value})
		if p.checkPunct(",") {
			p.advance()
			continue
		}
		if !p.checkPunct("}") {
			return nil, p.errorf(p.current(), "expected `,` or `}` in object, got %s", p.current())
		}
	}
	p.advance()
	return obj, nil
}

// parseKey accepts an identifier, a reserved word or a string.
func (p *Parser) parseKey(what string) (string, error) {
	tok := p.current()
	switch tok.Type {
	case TokenIdent, TokenKeyword, TokenString:
		p.advance()
		return tok.Literal, nil
	case TokenNumber:
		p.advance()
		return strconv.FormatFloat(tok.Value.(float64), 'f', -1, 64), nil
	}
	return "", p.errorf(tok, "expected %s, got %s", what, tok)
}

// ---------------------------------------------------------------------------
// Token helpers
// ---------------------------------------------------------------------------

func (p *Parser) current() Token {
	return p.peek(0)
}

func (p *Parser) peek(offset int) Token {
	if p.pos+offset < len(p.tokens) {
		return p.tokens[p.pos+offset]
	}
	if len(p.tokens) > 0 {
		last := p.tokens[len(p.tokens)-1]
		return Token{Type: TokenEOF, Line: last.Line, Column: last.Column}
	}
	return Token{Type: TokenEOF, Line: 1, Column: 1}
}

// peekPastNewlines returns the first token after any newlines without
// consuming them.
func (p *Parser) peekPastNewlines() Token {
	for i := 0; ; i++ {
		if tok := p.peek(i); tok.Type != TokenNewline {
			return tok
		}
	}
}

func (p *Parser) advance() Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) check(typ TokenType) bool {
	return p.current().Type == typ
}

func (p *Parser) checkKeyword(word string) bool {
	return p.current().is(TokenKeyword, word)
}

func (p *Parser) checkPunct(s string) bool {
	return p.current().is(TokenPunct, s)
}

func (p *Parser) acceptKeyword(word string) bool {
	if p.checkKeyword(word) {
		p.advance()
		return true
	}
	return false
}

// acceptEnd consumes the optional `end` closing a block. It may sit on a
// later line than the block but never past a dedent.
func (p *Parser) acceptEnd() {
	if p.peekPastNewlines().is(TokenKeyword, "end") {
		p.skipNewlines()
		p.advance()
	}
}

func (p *Parser) expectKeyword(word, context string) (Token, error) {
	if !p.checkKeyword(word) {
		return Token{}, p.errorf(p.current(), "expected `%s` %s, got %s", word, context, p.current())
	}
	return p.advance(), nil
}

func (p *Parser) expectPunct(s string) (Token, error) {
	if !p.checkPunct(s) {
		return Token{}, p.errorf(p.current(), "expected `%s`, got %s", s, p.current())
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent(what string) (string, error) {
	tok := p.current()
	if tok.Type != TokenIdent {
		return "", p.errorf(tok, "expected %s, got %s", what, tok)
	}
	p.advance()
	return tok.Literal, nil
}

// expectName accepts an identifier or a reserved word.
func (p *Parser) expectName(what string) (string, error) {
	tok := p.current()
	if tok.Type != TokenIdent && tok.Type != TokenKeyword {
		return "", p.errorf(tok, "expected %s, got %s", what, tok)
	}
	p.advance()
	return tok.Literal, nil
}

// expectDefinitionName accepts an identifier or a string naming a bot or
// agent.
func (p *Parser) expectDefinitionName(kind string) (string, error) {
	tok := p.current()
	if tok.Type != TokenIdent && tok.Type != TokenString {
		return "", p.errorf(tok, "expected %s name, got %s", kind, tok)
	}
	p.advance()
	return tok.Literal, nil
}

func (p *Parser) skipNewlines() {
	for p.check(TokenNewline) {
		p.advance()
	}
}

// skipLayout skips newlines and stray indentation between top-level items.
func (p *Parser) skipLayout() {
	for p.check(TokenNewline) || p.check(TokenIndent) || p.check(TokenDedent) {
		p.advance()
	}
}

func (p *Parser) errorf(tok Token, format string, args ...any) *SyntaxError {
	return &SyntaxError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

func position(tok Token) Position {
	return Position{Line: tok.Line, Column: tok.Column}
}
