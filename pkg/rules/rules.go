// Copyright (C) 2024 simcore authors.
// All rights reserved. This file is part of simcore.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package rules implements a conditional derived-attribute model: each
// rule evaluates an expr-lang expression against a source entity's
// attributes (plus simulation/clock time) and writes a value onto a
// target entity's output attribute when the condition holds. Supplements
// spec.md — grounded on the original implementation's rules model
// (models/rules/model.py) and its sibling attribute-function model
// (models/udf_model/functions.py), expressed here as one
// pkg/modeladapter.Model instead of two, since both reduce to "evaluate
// an expression per entity, every update". The compile-then-Run shape,
// and declaring referenced attribute names explicitly rather than
// introspecting the compiled expression, follows the teacher's own
// expr-lang usage in internal/tagger/classifyJob.go.
package rules

import (
	"encoding/json"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/nhr-fau/simcore/pkg/attribute"
	"github.com/nhr-fau/simcore/pkg/attrschema"
	"github.com/nhr-fau/simcore/pkg/dtype"
	"github.com/nhr-fau/simcore/pkg/log"
	"github.com/nhr-fau/simcore/pkg/modeladapter"
	"github.com/nhr-fau/simcore/pkg/moment"
	"github.com/nhr-fau/simcore/pkg/state"
	"github.com/nhr-fau/simcore/pkg/tracked"
)

// Spec is one rule as read from model configuration or a rules dataset.
// Attributes lists every source attribute name the If expression reads;
// declaring it explicitly (rather than inferring it from the compiled
// expression) keeps evaluation independent of expr-lang's AST shape.
type Spec struct {
	If          string   `json:"if"`
	Attributes  []string `json:"attributes"`
	FromDataset string   `json:"from_dataset"`
	FromGroup   string   `json:"from_group"`
	FromID      int64    `json:"from_id"`
	ToDataset   string   `json:"to_dataset"`
	ToGroup     string   `json:"to_group"`
	ToID        int64    `json:"to_id"`
	Output      string   `json:"output"`
	Value       any      `json:"value"`
	ElseValue   any      `json:"else_value"`
}

// Config is the model configuration shape: a flat list of rule specs.
type Config struct {
	Rules []Spec `json:"rules"`
}

// ParseConfig decodes a JSON model configuration.
func ParseConfig(raw []byte) (Config, error) {
	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("rules: decoding config: %w", err)
	}
	for i, r := range cfg.Rules {
		if r.If == "" {
			return Config{}, fmt.Errorf("rules: rule %d missing \"if\" condition", i)
		}
		if r.Output == "" {
			return Config{}, fmt.Errorf("rules: rule %d missing \"output\"", i)
		}
	}
	return cfg, nil
}

// rule pairs a Spec with its compiled condition.
type rule struct {
	spec    Spec
	program *vm.Program
}

// Model evaluates every configured rule on each Update, writing the
// rule's value (or else_value) onto the target attribute's row.
type Model struct {
	config Config
	rules  []*rule
}

// New builds a Model from cfg; conditions are compiled and attributes
// registered against live state in Setup.
func New(cfg Config) *Model {
	return &Model{config: cfg}
}

var _ modeladapter.Model = (*Model)(nil)

func (m *Model) Setup(s *state.State, schema *attrschema.Schema, initData modeladapter.InitDataProvider, settings any) error {
	floatKind := dtype.DataType{Kind: dtype.Float}

	for _, spec := range m.config.Rules {
		program, err := expr.Compile(spec.If, expr.AsBool())
		if err != nil {
			return fmt.Errorf("rules: compiling condition %q: %w", spec.If, err)
		}

		if spec.FromDataset != "" {
			s.RegisterEntityGroup(spec.FromDataset, spec.FromGroup, true)
			for _, name := range spec.Attributes {
				attrSpec, err := schema.Get(name, &floatKind, true)
				if err != nil {
					return err
				}
				if err := s.RegisterAttribute(spec.FromDataset, spec.FromGroup, attrSpec, attribute.Opt, tracked.DefaultTolerance); err != nil {
					return err
				}
			}
		}

		s.RegisterEntityGroup(spec.ToDataset, spec.ToGroup, false)
		outKind := dtype.DataType{Kind: outputKind(spec.Value)}
		outSpec, err := schema.Get(spec.Output, &outKind, true)
		if err != nil {
			return err
		}
		if err := s.RegisterAttribute(spec.ToDataset, spec.ToGroup, outSpec, attribute.Pub, tracked.DefaultTolerance); err != nil {
			return err
		}

		m.rules = append(m.rules, &rule{spec: spec, program: program})
	}
	log.Infof("rules: %d rule(s) registered", len(m.rules))
	return nil
}

func outputKind(v any) dtype.Kind {
	switch v.(type) {
	case bool:
		return dtype.Bool
	case string:
		return dtype.String
	default:
		return dtype.Float
	}
}

func (m *Model) Initialize(s *state.State) error { return nil }

func (m *Model) Update(s *state.State, t moment.Moment) (int64, bool, error) {
	simtime := t.SecondsSinceStart()
	wall := t.WallClock()
	clocktime := float64(wall.Hour()*3600 + wall.Minute()*60 + wall.Second())

	for _, r := range m.rules {
		if err := m.evaluate(s, r, simtime, clocktime); err != nil {
			log.Warnf("rules: %v", err)
		}
	}
	return 0, false, nil
}

func (m *Model) evaluate(s *state.State, r *rule, simtime, clocktime float64) error {
	env := map[string]any{"simtime": simtime, "clocktime": clocktime}
	for _, name := range r.spec.Attributes {
		if v, ok := s.ReadScalar(r.spec.FromDataset, r.spec.FromGroup, name, r.spec.FromID); ok {
			env[name] = v
		}
	}

	out, err := expr.Run(r.program, env)
	if err != nil {
		return fmt.Errorf("evaluating rule for output %q: %w", r.spec.Output, err)
	}

	value := r.spec.ElseValue
	if matched, _ := out.(bool); matched {
		value = r.spec.Value
	}
	if value == nil {
		return nil
	}
	return s.WriteScalar(r.spec.ToDataset, r.spec.ToGroup, r.spec.Output, r.spec.ToID, value)
}

func (m *Model) NewTime(s *state.State, t moment.Moment) error { return nil }
func (m *Model) Shutdown(s *state.State) error                { return nil }
