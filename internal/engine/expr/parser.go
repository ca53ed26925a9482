package expr

import "math"

type (
	node interface {
		eval(e *evaluator) (any, error)
	}

	literalNode struct {
		value any
	}

	listNode struct {
		items []node
	}

	pathNode struct {
		root     string
		segments []segment
		pos      int
	}

	// segment is one step of a path: a field key, or an index when isIndex
	// is set
	segment struct {
		key     string
		index   int
		isIndex bool
	}

	notNode struct {
		operand node
	}

	logicalNode struct {
		left  node
		right node
		and   bool
	}

	compareNode struct {
		left  node
		right node
		op    tokenKind
		pos   int
	}

	parser struct {
		src    string
		tokens []token
		pos    int
	}
)

func parse(src string) (node, error) {
	tokens, err := tokenize(src)
	if err != nil {
		return nil, err
	}

	p := &parser{src: src, tokens: tokens}
	if p.peek().kind == tokEOF {
		return nil, newError(src, 0, "empty expression")
	}

	res, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.unexpected(tok)
	}
	return res, nil
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{left: left, right: right, and: true}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.peek().kind == tokNot {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	switch tok.kind {
	case tokEq, tokNe, tokLt, tokLe, tokGt, tokGe, tokIn:
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &compareNode{
			left: left, right: right, op: tok.kind, pos: tok.pos,
		}, nil
	case tokNot:
		if p.peekAt(1).kind != tokIn {
			return left, nil
		}
		p.advance()
		p.advance()
		right, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		return &notNode{
			operand: &compareNode{
				left: left, right: right, op: tokIn, pos: tok.pos,
			},
		}, nil
	default:
		return left, nil
	}
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.advance()
	switch tok.kind {
	case tokNumber, tokString:
		return &literalNode{value: tok.value}, nil
	case tokTrue:
		return &literalNode{value: true}, nil
	case tokFalse:
		return &literalNode{value: false}, nil
	case tokNull:
		return &literalNode{value: nil}, nil
	case tokMinus:
		num := p.advance()
		if num.kind != tokNumber {
			return nil, p.unexpected(num)
		}
		return &literalNode{value: -num.value.(float64)}, nil
	case tokIdent:
		return p.parsePath(tok)
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return inner, nil
	case tokLBracket:
		return p.parseList()
	default:
		return nil, p.unexpected(tok)
	}
}

func (p *parser) parsePath(root token) (node, error) {
	res := &pathNode{root: root.text, pos: root.pos}
	for {
		switch p.peek().kind {
		case tokDot:
			p.advance()
			name := p.advance()
			if name.kind != tokIdent {
				return nil, p.unexpected(name)
			}
			res.segments = append(res.segments, segment{key: name.text})
		case tokLBracket:
			p.advance()
			seg, err := p.parseSubscript()
			if err != nil {
				return nil, err
			}
			res.segments = append(res.segments, seg)
			if err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
		default:
			return res, nil
		}
	}
}

func (p *parser) parseSubscript() (segment, error) {
	tok := p.advance()
	switch tok.kind {
	case tokString:
		return segment{key: tok.value.(string)}, nil
	case tokNumber:
		num := tok.value.(float64)
		if num < 0 || num != math.Trunc(num) {
			return segment{}, newError(p.src, tok.pos,
				"index must be a non-negative integer")
		}
		return segment{index: int(num), isIndex: true}, nil
	default:
		return segment{}, p.unexpected(tok)
	}
}

func (p *parser) parseList() (node, error) {
	res := &listNode{}
	if p.peek().kind == tokRBracket {
		p.advance()
		return res, nil
	}
	for {
		item, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		res.items = append(res.items, item)

		tok := p.advance()
		switch tok.kind {
		case tokComma:
			continue
		case tokRBracket:
			return res, nil
		default:
			return nil, p.unexpected(tok)
		}
	}
}

func (p *parser) expect(kind tokenKind) error {
	tok := p.advance()
	if tok.kind != kind {
		return p.unexpected(tok)
	}
	return nil
}

func (p *parser) unexpected(tok token) error {
	if tok.kind == tokEOF {
		return newError(p.src, tok.pos, "unexpected end of expression")
	}
	return newError(p.src, tok.pos, "unexpected token %q", tok.text)
}

func (p *parser) peek() token {
	return p.peekAt(0)
}

func (p *parser) peekAt(offset int) token {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1]
	}
	return p.tokens[idx]
}

func (p *parser) advance() token {
	tok := p.peek()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}
