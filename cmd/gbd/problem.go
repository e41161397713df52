// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/groebner/services/gb/engine"
	"github.com/AleutianAI/groebner/services/gb/poly"
	"github.com/AleutianAI/groebner/services/gb/ring"
)

// Problem is an ideal to compute, as read from a problem file.
//
//	name: trinks
//	vars: [B, S, T, Z, P, W]
//	order: lex
//	coefficients: rational
//	variant: field
//	polynomials:
//	  - 45 P + 35 S - 165 B - 36
//	  - ...
//
// Solvable rings add either weyl: true or explicit relations, each
// stating left * right = product with left a power of a later variable.
type Problem struct {
	Name         string     `json:"name" yaml:"name"`
	Vars         []string   `json:"vars" yaml:"vars" validate:"required,min=1,dive,required"`
	Order        string     `json:"order" yaml:"order" validate:"omitempty,oneof=lex invlex deglex grlex degrevlex grevlex igrlex"`
	Coefficients string     `json:"coefficients" yaml:"coefficients" validate:"required,oneof=rational integer modular product-rational product-integer product-modular"`
	Modulus      int64      `json:"modulus" yaml:"modulus" validate:"min=0"`
	Components   int        `json:"components" yaml:"components" validate:"min=0"`
	Variant      string     `json:"variant" yaml:"variant" validate:"omitempty,oneof=field pseudo d e r rpseudo left twosided"`
	Weyl         bool       `json:"weyl" yaml:"weyl"`
	Relations    []Relation `json:"relations" yaml:"relations" validate:"dive"`
	Polynomials  []string   `json:"polynomials" yaml:"polynomials" validate:"required,min=1"`
}

// Relation is one entry of a relation table.
type Relation struct {
	Left    string `json:"left" yaml:"left" validate:"required"`
	Right   string `json:"right" yaml:"right" validate:"required"`
	Product string `json:"product" yaml:"product" validate:"required"`
}

var (
	errProblem = errors.New("invalid problem")

	problemValidate = validator.New()
)

// loadProblem reads and checks a YAML or JSON problem file.
func loadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		if jsonErr := json.Unmarshal(data, &p); jsonErr != nil {
			return nil, fmt.Errorf("parse problem (tried YAML and JSON): YAML error: %v, JSON error: %w", err, jsonErr)
		}
	}
	if err := p.check(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &p, nil
}

func (p *Problem) check() error {
	if err := problemValidate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", errProblem, err)
	}
	switch p.Coefficients {
	case "modular", "product-modular":
		if p.Modulus < 2 {
			return fmt.Errorf("%w: %s coefficients need a modulus >= 2", errProblem, p.Coefficients)
		}
	}
	switch p.Coefficients {
	case "product-rational", "product-integer", "product-modular":
		if p.Components < 1 {
			return fmt.Errorf("%w: %s coefficients need components >= 1", errProblem, p.Coefficients)
		}
	}
	v := p.variantName()
	if p.solvable() && v != "left" && v != "twosided" {
		return fmt.Errorf("%w: solvable rings take the left or twosided variant, not %q", errProblem, v)
	}
	if !slices.Contains(variantsFor[p.Coefficients], v) {
		return fmt.Errorf("%w: variant %q does not apply to %s coefficients", errProblem, v, p.Coefficients)
	}
	return nil
}

// variantsFor lists the variants each coefficient kind supports. Monic
// normalization needs a field; the D, E and pseudo variants need exact
// division only.
var variantsFor = map[string][]string{
	"rational":         {"field", "pseudo", "left", "twosided"},
	"modular":          {"field", "pseudo", "left", "twosided"},
	"integer":          {"pseudo", "d", "e"},
	"product-rational": {"r", "rpseudo"},
	"product-modular":  {"r", "rpseudo"},
	"product-integer":  {"rpseudo"},
}

func (p *Problem) solvable() bool { return p.Weyl || len(p.Relations) > 0 }

// variantName returns the configured variant or the natural one for the
// coefficient ring.
func (p *Problem) variantName() string {
	if p.Variant != "" {
		return p.Variant
	}
	switch {
	case p.solvable():
		return "left"
	case p.Coefficients == "integer":
		return "pseudo"
	case p.Coefficients == "product-integer":
		return "rpseudo"
	case p.Coefficients == "product-rational", p.Coefficients == "product-modular":
		return "r"
	default:
		return "field"
	}
}

// build constructs the polynomial ring and parses the generators.
func build[C ring.Element[C]](p *Problem, coeffs ring.Factory[C]) (*poly.Ring[C], []*poly.Polynomial[C], error) {
	order := poly.Lex
	if p.Order != "" {
		o, err := poly.ParseTermOrder(p.Order)
		if err != nil {
			return nil, nil, err
		}
		order = o
	}

	var r *poly.Ring[C]
	if p.solvable() {
		r = poly.NewSolvableRing[C](coeffs, order, p.Vars...)
		if p.Weyl {
			if err := poly.WeylRelations(r); err != nil {
				return nil, nil, err
			}
		}
		for i, rel := range p.Relations {
			if err := addRelation(r, rel); err != nil {
				return nil, nil, fmt.Errorf("relation %d: %w", i, err)
			}
		}
	} else {
		r = poly.NewRing[C](coeffs, order, p.Vars...)
	}

	fs, err := r.ParseList(p.Polynomials...)
	if err != nil {
		return nil, nil, err
	}
	return r, fs, nil
}

func addRelation[C ring.Element[C]](r *poly.Ring[C], rel Relation) error {
	left, err := r.Parse(rel.Left)
	if err != nil {
		return err
	}
	right, err := r.Parse(rel.Right)
	if err != nil {
		return err
	}
	product, err := r.Parse(rel.Product)
	if err != nil {
		return err
	}
	if left.Len() != 1 || right.Len() != 1 {
		return fmt.Errorf("%w: left and right must be monomials", errProblem)
	}
	return r.Table().Update(left.LeadingExp(), right.LeadingExp(), product)
}

// =============================================================================
// Variant selection
// =============================================================================

// elementVariant maps a variant name to an engine variant over any
// coefficient ring.
func elementVariant[C ring.Element[C]](name string) (engine.Variant[C], error) {
	switch name {
	case "field":
		return engine.NewFieldVariant[C](), nil
	case "pseudo":
		return engine.NewPseudoVariant[C](), nil
	case "d":
		return engine.NewDVariant[C](), nil
	case "e":
		return engine.NewEVariant[C](), nil
	case "left":
		return engine.NewLeftVariant[C](), nil
	case "twosided":
		return engine.NewTwoSidedVariant[C](), nil
	default:
		return nil, fmt.Errorf("%w: variant %q needs product coefficients", errProblem, name)
	}
}

// regularVariant adds the R variants for product coefficient rings.
func regularVariant[C ring.Regular[C]](name string) (engine.Variant[C], error) {
	switch name {
	case "r":
		return engine.NewRVariant[C](), nil
	case "rpseudo":
		return engine.NewRPseudoVariant[C](), nil
	default:
		return elementVariant[C](name)
	}
}
