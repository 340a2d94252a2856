// Tenantgate - Multi-Tenant Request Authorization and Quota Governance
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tenantgate

// Package authz is the decision core: the ordered policy evaluator,
// the Casbin-backed role hierarchy, and the Authorizer facade the
// transport layer calls.
package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// EnforcerConfig selects where the RBAC model and policy come from.
// Empty paths fall back to the embedded defaults, which carry the
// standard viewer < editor < admin hierarchy.
type EnforcerConfig struct {
	ModelPath  string
	PolicyPath string
}

// Enforcer wraps a Casbin synced enforcer for role checks.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer builds the enforcer from config or embedded defaults.
func NewEnforcer(cfg EnforcerConfig) (*Enforcer, error) {
	var (
		m   model.Model
		err error
	)
	if cfg.ModelPath != "" {
		m, err = model.NewModelFromFile(cfg.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	if cfg.PolicyPath != "" {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(cfg.PolicyPath))
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadEmbeddedPolicy(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create casbin enforcer: %w", err)
	}
	return &Enforcer{enforcer: enforcer}, nil
}

// loadEmbeddedPolicy parses the embedded policy CSV line by line.
func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		switch parts[0] {
		case "p":
			if len(parts) >= 4 {
				if _, err := enforcer.AddPolicy(parts[1], parts[2], parts[3]); err != nil {
					return fmt.Errorf("add policy %v: %w", parts[1:], err)
				}
			}
		case "g":
			if len(parts) >= 3 {
				if _, err := enforcer.AddGroupingPolicy(parts[1], parts[2]); err != nil {
					return fmt.Errorf("add grouping policy %v: %w", parts[1:], err)
				}
			}
		}
	}
	return nil
}

// RoleSatisfies reports whether holding `role` satisfies a
// requirement for `required`, either exactly or through inheritance
// (admin satisfies editor satisfies viewer under the default policy).
func (e *Enforcer) RoleSatisfies(role, required string) (bool, error) {
	if role == required {
		return true, nil
	}
	roles, err := e.enforcer.GetImplicitRolesForUser(role)
	if err != nil {
		return false, fmt.Errorf("resolve role hierarchy: %w", err)
	}
	for _, r := range roles {
		if r == required {
			return true, nil
		}
	}
	return false, nil
}

// Enforce checks a subject/object/action triple against the loaded
// route grants.
func (e *Enforcer) Enforce(subject, object, action string) (bool, error) {
	ok, err := e.enforcer.Enforce(subject, object, action)
	if err != nil {
		return false, fmt.Errorf("enforce: %w", err)
	}
	return ok, nil
}

// AddRoleInheritance makes child inherit everything parent grants.
func (e *Enforcer) AddRoleInheritance(child, parent string) error {
	if _, err := e.enforcer.AddGroupingPolicy(child, parent); err != nil {
		return fmt.Errorf("add role inheritance: %w", err)
	}
	return nil
}
