// internal/app/features/shared/patientscope/patientscope.go
//
// Package patientscope resolves which patient's records a request
// addresses and enforces the care-relation policy, so every
// patient-data feature handles scoping the same way.
package patientscope

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/kneetrack/kneetrack/internal/app/policy/patientaccess"
	sysauth "github.com/kneetrack/kneetrack/internal/app/system/auth"
	"github.com/kneetrack/kneetrack/internal/app/system/httpjson"
)

// Target resolves which patient's data the request addresses: the
// user_id query parameter when present, otherwise the caller. It
// enforces perm against the relation policy, writing the error
// response itself; callers bail out when ok is false.
func Target(ctx context.Context, w http.ResponseWriter, r *http.Request, rels patientaccess.RelationSource, perm patientaccess.Permission) (primitive.ObjectID, bool) {
	actor, _ := sysauth.CurrentUser(r)
	target := actor.ID
	if s := query.Get(r, "user_id"); s != "" {
		id, err := primitive.ObjectIDFromHex(s)
		if err != nil {
			httpjson.BadRequest(w, r, "invalid user_id")
			return primitive.NilObjectID, false
		}
		target = id
	}

	dec, err := patientaccess.Check(ctx, rels, actor, target, perm)
	if err != nil {
		httpjson.Internal(w, r, err)
		return primitive.NilObjectID, false
	}
	if !dec.Allowed {
		httpjson.Forbidden(w, r, "Access denied")
		return primitive.NilObjectID, false
	}
	return target, true
}

// Allowed checks perm for an already-known patient ID, writing the
// error response itself when the check fails.
func Allowed(ctx context.Context, w http.ResponseWriter, r *http.Request, rels patientaccess.RelationSource, patientID primitive.ObjectID, perm patientaccess.Permission) bool {
	actor, _ := sysauth.CurrentUser(r)
	dec, err := patientaccess.Check(ctx, rels, actor, patientID, perm)
	if err != nil {
		httpjson.Internal(w, r, err)
		return false
	}
	if !dec.Allowed {
		httpjson.Forbidden(w, r, "Access denied")
		return false
	}
	return true
}

// DateRange parses optional from/to query parameters (RFC 3339 or
// YYYY-MM-DD).
func DateRange(r *http.Request) (from, to *time.Time, err error) {
	parse := func(s string) (*time.Time, error) {
		if s == "" {
			return nil, nil
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return &t, nil
		}
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			return nil, err
		}
		return &t, nil
	}
	if from, err = parse(query.Get(r, "from")); err != nil {
		return nil, nil, err
	}
	if to, err = parse(query.Get(r, "to")); err != nil {
		return nil, nil, err
	}
	return from, to, nil
}
