package core

import (
	"context"
	"encoding/json"
	"sort"

	apperr "github.com/clusterhub/clustercore/internal/errors"
	"github.com/clusterhub/clustercore/internal/plugin"
)

// dispatchUsers implements the `users` resource (spec.md §6): a flat
// collection of user names, with attribute create/retrieve/update/delete
// per user and a one-way `password` field that never round-trips in
// cleartext (internal/configmanager.UserStore, SPEC_FULL.md §B).
func (c *Core) dispatchUsers(ctx context.Context, rest []string, op plugin.Operation, input []byte) (any, error) {
	if len(rest) == 0 {
		switch op {
		case plugin.Retrieve:
			names := c.Users.List()
			sort.Strings(names)
			return names, nil
		case plugin.Create:
			var body map[string]string
			if err := json.Unmarshal(input, &body); err != nil {
				return nil, apperr.InvalidArgument("malformed user creation body")
			}
			name := body["name"]
			if name == "" {
				return nil, apperr.InvalidArgument("user creation requires a name")
			}
			delete(body, "name")
			if err := c.Users.SetAttributes(ctx, name, body); err != nil {
				return nil, err
			}
			return c.userView(ctx, name), nil
		default:
			return nil, apperr.NotImplemented("users " + string(op))
		}
	}

	username := rest[0]
	if len(rest) != 1 {
		return nil, apperr.NotFound("users/" + username)
	}

	switch op {
	case plugin.Retrieve:
		return c.userView(ctx, username), nil
	case plugin.Update:
		var attrs map[string]string
		if err := json.Unmarshal(input, &attrs); err != nil {
			return nil, apperr.InvalidArgument("malformed user attributes")
		}
		if err := c.Users.SetAttributes(ctx, username, attrs); err != nil {
			return nil, err
		}
		return c.userView(ctx, username), nil
	case plugin.Delete:
		c.Users.Delete(username)
		return map[string]string{"deleted": username}, nil
	default:
		return nil, apperr.NotImplemented("users " + string(op))
	}
}

// userView assembles the caller-facing attribute map for username: the
// password field, if set, is emitted only as a {cryptvalue: true}
// marker — the stored bcrypt hash never leaves internal/configmanager
// (spec.md §6, §8 scenario 4).
func (c *Core) userView(ctx context.Context, username string) map[string]any {
	attrs, _ := c.Users.Attributes(ctx, username)
	out := make(map[string]any, len(attrs)+1)
	for k, v := range attrs {
		out[k] = v
	}
	if c.Users.HasPassword(username) {
		out["password"] = map[string]bool{"cryptvalue": true}
	}
	return out
}
