// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package authz derives capability sets from profile flags and answers
// "may this actor do that" questions through a casbin RBAC enforcer.
// Ownership is not a role; callers check it against the record.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/google/uuid"

	"inkwell/internal/models"
)

// Capability is the role a request runs under.
type Capability string

const (
	Anonymous  Capability = "anonymous"
	Restricted Capability = "restricted"
	Author     Capability = "author"
	Admin      Capability = "admin"
)

// Objects and actions known to the policy.
const (
	ObjPost      = "post"
	ObjProfile   = "profile"
	ObjDashboard = "dashboard"

	ActRead     = "read"
	ActCreate   = "create"
	ActEdit     = "edit"
	ActDelete   = "delete"
	ActListOwn  = "list_own"
	ActListAll  = "list_all"
	ActApprove  = "approve"
	ActReject   = "reject"
	ActHide     = "hide"
	ActRestrict = "restrict"
)

const rbacModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// Actor is the identity a request acts as. UserID is uuid.Nil for
// anonymous callers.
type Actor struct {
	UserID     uuid.UUID
	Capability Capability
}

// IsAnonymous reports whether the actor has no identity.
func (a Actor) IsAnonymous() bool {
	return a.UserID == uuid.Nil
}

// Resolve derives the actor for a session user and its profile. A missing
// profile yields the restricted capability: the identity exists but the
// store holds no record that could own posts.
func Resolve(userID uuid.UUID, profile *models.Profile) Actor {
	if userID == uuid.Nil {
		return Actor{Capability: Anonymous}
	}
	switch {
	case profile == nil:
		return Actor{UserID: userID, Capability: Restricted}
	case profile.IsAdmin:
		return Actor{UserID: userID, Capability: Admin}
	case profile.IsRestricted:
		return Actor{UserID: userID, Capability: Restricted}
	default:
		return Actor{UserID: userID, Capability: Author}
	}
}

type policy struct {
	obj, act string
}

// builtin is the policy matrix. Roles inherit everything from their parent.
var builtin = []struct {
	role     Capability
	inherits Capability
	policies []policy
}{
	{
		role:     Anonymous,
		policies: []policy{{ObjPost, ActRead}},
	},
	{
		role:     Restricted,
		inherits: Anonymous,
		policies: []policy{
			{ObjPost, ActEdit},
			{ObjPost, ActDelete},
			{ObjPost, ActListOwn},
			{ObjDashboard, ActRead},
		},
	},
	{
		role:     Author,
		inherits: Restricted,
		policies: []policy{{ObjPost, ActCreate}},
	},
	{
		role:     Admin,
		inherits: Author,
		policies: []policy{
			{ObjPost, ActListAll},
			{ObjPost, ActApprove},
			{ObjPost, ActReject},
			{ObjPost, ActHide},
			{ObjProfile, ActListAll},
			{ObjProfile, ActRestrict},
		},
	},
}

// Enforcer answers capability checks.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// New builds an enforcer loaded with the builtin policy matrix.
func New() (*Enforcer, error) {
	m, err := model.NewModelFromString(rbacModel)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}

	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("init authz enforcer: %w", err)
	}

	for _, seed := range builtin {
		if seed.inherits != "" {
			if _, err := e.AddGroupingPolicy(string(seed.role), string(seed.inherits)); err != nil {
				return nil, fmt.Errorf("link role %s: %w", seed.role, err)
			}
		}
		for _, p := range seed.policies {
			if _, err := e.AddPolicy(string(seed.role), p.obj, p.act); err != nil {
				return nil, fmt.Errorf("add policy %s %s:%s: %w", seed.role, p.obj, p.act, err)
			}
		}
	}

	return &Enforcer{enforcer: e}, nil
}

// MustNew is New for process start-up and tests.
func MustNew() *Enforcer {
	e, err := New()
	if err != nil {
		panic(err)
	}
	return e
}

// Can reports whether actor may perform act on obj. Enforcement errors
// deny.
func (e *Enforcer) Can(actor Actor, obj, act string) bool {
	ok, err := e.enforcer.Enforce(string(actor.Capability), obj, act)
	if err != nil {
		return false
	}
	return ok
}
