package provider

import (
	"context"
	"net/http"
	"net/url"

	"github.com/deltacron/authgate/internal/util"
)

// adminUserList is the admin user listing payload.
type adminUserList struct {
	Users []User `json:"users"`
}

// AdminGetUserByEmail looks up an account by email with the service role
// key. Returns nil without error when no account matches.
func (c *httpClient) AdminGetUserByEmail(ctx context.Context, email string) (*User, error) {
	if c.serviceRoleKey == "" {
		return nil, util.NewAuthorizationError("service role key not configured")
	}

	var list adminUserList
	err := c.invoke(ctx, call{
		operation: "admin_get_user",
		method:    http.MethodGet,
		path:      authBasePath + "/admin/users",
		query: url.Values{
			"email":    {email},
			"per_page": {"1"},
		},
		key: c.serviceRoleKey,
		out: &list,
	})
	if err != nil {
		return nil, err
	}

	for i := range list.Users {
		if list.Users[i].Email == email {
			return &list.Users[i], nil
		}
	}
	return nil, nil
}

// AdminDeleteUser removes an account with the service role key.
func (c *httpClient) AdminDeleteUser(ctx context.Context, userID string) error {
	if c.serviceRoleKey == "" {
		return util.NewAuthorizationError("service role key not configured")
	}

	return c.invoke(ctx, call{
		operation: "admin_delete_user",
		method:    http.MethodDelete,
		path:      authBasePath + "/admin/users/" + url.PathEscape(userID),
		key:       c.serviceRoleKey,
	})
}

// AdminInsertRow inserts a row into a provider-hosted table with the
// service role key. Used by the audit sink.
func (c *httpClient) AdminInsertRow(ctx context.Context, table string, row map[string]interface{}) error {
	if c.serviceRoleKey == "" {
		return util.NewAuthorizationError("service role key not configured")
	}

	return c.invoke(ctx, call{
		operation: "admin_insert_row",
		method:    http.MethodPost,
		path:      restBasePath + "/" + url.PathEscape(table),
		key:       c.serviceRoleKey,
		body:      row,
	})
}
