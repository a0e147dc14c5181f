package dsl

// Position is the source location of a node.
type Position struct {
	Line   int
	Column int
}

// Pos returns the node position.
func (p Position) Pos() Position { return p }

// Node is any element of the syntax tree. Trees are never mutated after
// parsing and may be shared between concurrent runs.
type Node interface {
	Pos() Position
}

// Statement is an executable node.
type Statement interface {
	Node
	stmtNode()
}

// Expression is a node that evaluates to a value.
type Expression interface {
	Node
	exprNode()
}

// Program is the root of a parsed script. Items holds *BotDefinition and
// Statement values in source order.
type Program struct {
	Items []Node
}

// Bots returns the bot definitions of the program in source order.
func (p *Program) Bots() []*BotDefinition {
	var bots []*BotDefinition
	for _, item := range p.Items {
		if bot, ok := item.(*BotDefinition); ok {
			bots = append(bots, bot)
		}
	}
	return bots
}

// BotDefinition is a top-level `bot` block. Body holds *AgentDefinition,
// *OnInputHandler, *OnEventHandler and Statement values. Memory
// declarations are kept for inspection only and are never executed.
type BotDefinition struct {
	Position
	Name        string
	Description string
	Body        []Node
	Memory      []*MemoryBlock
}

// Agents returns the agents nested in the bot.
func (b *BotDefinition) Agents() []*AgentDefinition {
	var agents []*AgentDefinition
	for _, item := range b.Body {
		if agent, ok := item.(*AgentDefinition); ok {
			agents = append(agents, agent)
		}
	}
	return agents
}

// AgentDefinition is an `agent` block nested in a bot. Handlers holds
// *OnInputHandler and *OnEventHandler values.
type AgentDefinition struct {
	Position
	Name        string
	Description string
	Handlers    []Node
}

// OnInputHandler runs its body for every input when Guard is nil or truthy.
type OnInputHandler struct {
	Position
	Guard Expression
	Body  *Block
}

// OnEventHandler runs its body when the named event is emitted.
type OnEventHandler struct {
	Position
	Event string
	Body  *Block
}

// MemoryBlock is a `memory` declaration.
type MemoryBlock struct {
	Position
	Name string
	Vars []MemoryVar
}

// MemoryVar is a single `var` line of a memory declaration.
type MemoryVar struct {
	Name string
	Type string
}

// Block is an ordered statement list.
type Block struct {
	Position
	Statements []Statement
}

// IfStatement is an if/elif/else chain. Alternate is nil, an *IfStatement
// (elif) or a *Block (else).
type IfStatement struct {
	Position
	Condition  Expression
	Consequent *Block
	Alternate  Statement
}

// Argument is a named argument of a call or delegate statement.
type Argument struct {
	Name  string
	Value Expression
}

// CallStatement invokes a host tool. Output names the variable receiving
// the result and may be empty.
type CallStatement struct {
	Position
	Tool   string
	Args   []Argument
	Output string
}

// Assignment binds a value to a variable.
type Assignment struct {
	Position
	Name  string
	Value Expression
}

// SayStatement appends a value to the run output.
type SayStatement struct {
	Position
	Message Expression
}

// DelegateStatement records a hand-off to another agent.
type DelegateStatement struct {
	Position
	Agent string
	Args  []Argument
}

// ReturnStatement ends the current handler. Value may be nil.
type ReturnStatement struct {
	Position
	Value Expression
}

// ParallelBlock runs its statements concurrently.
type ParallelBlock struct {
	Position
	Statements []Statement
}

// LoopStatement iterates Body over the elements of Iterable.
type LoopStatement struct {
	Position
	Variable string
	Iterable Expression
	Body     *Block
}

func (*Block) stmtNode()             {}
func (*IfStatement) stmtNode()       {}
func (*CallStatement) stmtNode()     {}
func (*Assignment) stmtNode()        {}
func (*SayStatement) stmtNode()      {}
func (*DelegateStatement) stmtNode() {}
func (*ReturnStatement) stmtNode()   {}
func (*ParallelBlock) stmtNode()     {}
func (*LoopStatement) stmtNode()     {}

// Literal is a string, number (float64), boolean or null value.
type Literal struct {
	Position
	Value any
}

// Identifier is a bare variable reference.
type Identifier struct {
	Position
	Name string
}

// VariableAccess is a dotted variable path such as user.profile.name.
type VariableAccess struct {
	Position
	Path []string
}

// MemberExpression is obj[expr] when Computed, otherwise obj.name with
// Property an *Identifier naming the field.
type MemberExpression struct {
	Position
	Object   Expression
	Property Expression
	Computed bool
}

// ArrayLiteral is [a, b, ...].
type ArrayLiteral struct {
	Position
	Elements []Expression
}

// Property is a key of an object literal.
type Property struct {
	Key   string
	Value Expression
}

// ObjectLiteral is {key: value, ...} with keys in source order.
type ObjectLiteral struct {
	Position
	Properties []Property
}

// BinaryExpression applies Operator to Left and Right.
type BinaryExpression struct {
	Position
	Operator string
	Left     Expression
	Right    Expression
}

// UnaryExpression is `-x` or `not x`.
type UnaryExpression struct {
	Position
	Operator string
	Operand  Expression
}

// FStringPart is one fragment of an f-string: literal text when Expr is
// nil, otherwise an interpolation whose original text is Source.
type FStringPart struct {
	Text   string
	Expr   Expression
	Source string
}

// FString is an interpolated string literal. Raw is the template as
// written; Parts is its parsed form.
type FString struct {
	Position
	Raw   string
	Parts []FStringPart
}

func (*Literal) exprNode()          {}
func (*Identifier) exprNode()       {}
func (*VariableAccess) exprNode()   {}
func (*MemberExpression) exprNode() {}
func (*ArrayLiteral) exprNode()     {}
func (*ObjectLiteral) exprNode()    {}
func (*BinaryExpression) exprNode() {}
func (*UnaryExpression) exprNode()  {}
func (*FString) exprNode()          {}
