package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/odyssey-erp/odyssey-admin/internal/rbac"
)

// ErrMalformedProfile indicates a profile document that cannot be trusted.
var ErrMalformedProfile = errors.New("session: malformed profile")

// NormalizeProfile converts the backend profile document into a User. The backend
// answers either {"user": {...}} or the flat profile object; both are accepted here
// and nowhere else.
func NormalizeProfile(raw []byte) (*User, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	if nested, ok := doc["user"].(map[string]any); ok {
		doc = nested
	}

	user := &User{
		ID:       scalar(doc["id"]),
		Username: scalar(doc["username"]),
		Name:     scalar(doc["name"]),
		Email:    scalar(doc["email"]),
		StoreID:  scalar(doc["store_id"]),
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrMalformedProfile)
	}
	if user.Username == "" {
		return nil, fmt.Errorf("%w: missing username", ErrMalformedProfile)
	}

	roleRaw := scalar(doc["role"])
	if roleRaw == "" {
		if obj, ok := doc["role"].(map[string]any); ok {
			roleRaw = scalar(obj["name"])
		}
	}
	role, err := rbac.ParseRole(roleRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedProfile, err)
	}
	user.Role = role

	codes, err := permissionCodes(doc["permissions"])
	if err != nil {
		return nil, err
	}
	user.Permissions, _ = rbac.ParsePermissionSet(codes)
	return user, nil
}

// permissionCodes accepts a list of strings or of {"name"|"code": ...} objects.
func permissionCodes(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: permissions must be a list", ErrMalformedProfile)
	}
	codes := make([]string, 0, len(list))
	for _, item := range list {
		switch p := item.(type) {
		case string:
			codes = append(codes, p)
		case map[string]any:
			if code := scalar(p["code"]); code != "" {
				codes = append(codes, code)
			} else if name := scalar(p["name"]); name != "" {
				codes = append(codes, name)
			}
		}
	}
	return codes, nil
}

func scalar(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}
