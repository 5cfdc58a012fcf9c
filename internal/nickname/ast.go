// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Bindery Contributors

// Package nickname parses the nickname mini template language and resolves
// templates against a member, a guild, and an optional Roblox identity.
package nickname

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/samber/oops"
)

// templateLexer tokenizes template text. Braces switch into placeholder
// mode, where colons separate a modifier from the placeholder name.
var templateLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{Name: "LBrace", Pattern: `\{`, Action: lexer.Push("Placeholder")},
		{Name: "Text", Pattern: `[^{]+`},
	},
	"Placeholder": {
		{Name: "RBrace", Pattern: `\}`, Action: lexer.Pop()},
		{Name: "Colon", Pattern: `:`},
		{Name: "Ident", Pattern: `[^:{}]+`},
	},
})

// Template is a parsed nickname template: a sequence of literal text runs
// and placeholders.
type Template struct {
	Parts []*Part `parser:"@@*"`
}

// Part is either a placeholder or a literal text run.
type Part struct {
	Placeholder *Placeholder `parser:"@@"`
	Text        string       `parser:"| @Text"`
}

// Placeholder is `{name}` or `{modifier:name}`. Extra colon-separated
// segments are kept so unknown shapes can be restored as literal text.
type Placeholder struct {
	First string   `parser:"LBrace @Ident?"`
	Rest  []string `parser:"(Colon @Ident?)* RBrace"`
}

// Modifier returns the modifier segment, or "" for a bare placeholder.
func (p *Placeholder) Modifier() string {
	if len(p.Rest) > 0 {
		return p.First
	}
	return ""
}

// Name returns the placeholder name being substituted.
func (p *Placeholder) Name() string {
	if len(p.Rest) > 0 {
		return p.Rest[0]
	}
	return p.First
}

// Inner reconstructs the text between the braces.
func (p *Placeholder) Inner() string {
	if len(p.Rest) == 0 {
		return p.First
	}
	return p.First + ":" + strings.Join(p.Rest, ":")
}

// parser is the singleton participle parser instance.
var parser *participle.Parser[Template]

func init() {
	var err error
	parser, err = participle.Build[Template](
		participle.Lexer(templateLexer),
		participle.UseLookahead(2),
	)
	if err != nil {
		panic(fmt.Sprintf("failed to build template parser: %v", err))
	}
}

// Parse parses template text into its parts.
func Parse(template string) (*Template, error) {
	if template == "" {
		return &Template{}, nil
	}
	parsed, err := parser.ParseString("", template)
	if err != nil {
		return nil, oops.Wrapf(err, "parsing nickname template")
	}
	return parsed, nil
}
