package api

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-bingo-admin/tenants"
)

// collection implements the CRUD calls shared by every resource
type collection[T any] struct {
	client *Client
	path   string
}

func (c collection[T]) list(ctx context.Context, opts ListOptions) ([]T, error) {
	var items []T
	if err := c.client.Do(ctx, http.MethodGet, c.path, opts.Values(), nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c collection[T]) get(ctx context.Context, id string) (*T, error) {
	item := new(T)
	if err := c.client.Do(ctx, http.MethodGet, resourcePath(c.path, id), nil, nil, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (c collection[T]) create(ctx context.Context, input any) (*T, error) {
	item := new(T)
	if err := c.client.Do(ctx, http.MethodPost, c.path, nil, input, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (c collection[T]) update(ctx context.Context, id string, input any) (*T, error) {
	item := new(T)
	if err := c.client.Do(ctx, http.MethodPut, resourcePath(c.path, id), nil, input, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (c collection[T]) delete(ctx context.Context, id string) error {
	return c.client.Do(ctx, http.MethodDelete, resourcePath(c.path, id), nil, nil, nil)
}

func (c collection[T]) action(ctx context.Context, method, id, action string, input any) (*T, error) {
	item := new(T)
	if err := c.client.Do(ctx, method, resourcePath(c.path, id, action), nil, input, item); err != nil {
		return nil, err
	}
	return item, nil
}

type Users struct {
	collection[User]
}

func (c *Client) Users() *Users {
	return &Users{collection[User]{client: c, path: PathUsers}}
}

func (u *Users) List(ctx context.Context, opts ListOptions) ([]User, error) {
	return u.list(ctx, opts)
}

func (u *Users) Get(ctx context.Context, id string) (*User, error) {
	return u.get(ctx, id)
}

func (u *Users) Create(ctx context.Context, input UserInput) (*User, error) {
	return u.create(ctx, input)
}

func (u *Users) Update(ctx context.Context, id string, input UserInput) (*User, error) {
	return u.update(ctx, id, input)
}

func (u *Users) Delete(ctx context.Context, id string) error {
	return u.delete(ctx, id)
}

func (u *Users) Activate(ctx context.Context, id string) (*User, error) {
	return u.action(ctx, http.MethodPost, id, "activate", nil)
}

func (u *Users) SetStatus(ctx context.Context, id, status string) (*User, error) {
	return u.action(ctx, http.MethodPatch, id, "status", map[string]string{"status": status})
}

func (u *Users) SetRole(ctx context.Context, id, role string) (*User, error) {
	return u.action(ctx, http.MethodPatch, id, "role", map[string]string{"role": role})
}

type Roles struct {
	collection[Role]
}

func (c *Client) Roles() *Roles {
	return &Roles{collection[Role]{client: c, path: PathRoles}}
}

func (r *Roles) List(ctx context.Context) ([]Role, error) {
	return r.list(ctx, ListOptions{})
}

func (r *Roles) Get(ctx context.Context, id string) (*Role, error) {
	return r.get(ctx, id)
}

func (r *Roles) Create(ctx context.Context, input RoleInput) (*Role, error) {
	return r.create(ctx, input)
}

func (r *Roles) Update(ctx context.Context, id string, input RoleInput) (*Role, error) {
	return r.update(ctx, id, input)
}

func (r *Roles) Delete(ctx context.Context, id string) error {
	return r.delete(ctx, id)
}

// AssignPermissions replaces the role's permission list
func (r *Roles) AssignPermissions(ctx context.Context, id string, permissions []string) (*Role, error) {
	if permissions == nil {
		permissions = []string{}
	}
	return r.action(ctx, http.MethodPut, id, "permissions", map[string][]string{"permissions": permissions})
}

type Permissions struct {
	collection[Permission]
}

func (c *Client) Permissions() *Permissions {
	return &Permissions{collection[Permission]{client: c, path: PathPermissions}}
}

func (p *Permissions) List(ctx context.Context) ([]Permission, error) {
	return p.list(ctx, ListOptions{})
}

type Branches struct {
	collection[Branch]
}

func (c *Client) Branches() *Branches {
	return &Branches{collection[Branch]{client: c, path: PathBranches}}
}

func (b *Branches) List(ctx context.Context, opts ListOptions) ([]Branch, error) {
	return b.list(ctx, opts)
}

func (b *Branches) Get(ctx context.Context, id string) (*Branch, error) {
	return b.get(ctx, id)
}

func (b *Branches) Create(ctx context.Context, input BranchInput) (*Branch, error) {
	return b.create(ctx, input)
}

func (b *Branches) Update(ctx context.Context, id string, input BranchInput) (*Branch, error) {
	return b.update(ctx, id, input)
}

func (b *Branches) Delete(ctx context.Context, id string) error {
	return b.delete(ctx, id)
}

type Tenant struct {
	client *Client
}

func (c *Client) Tenant() *Tenant {
	return &Tenant{client: c}
}

// Settings is public, it is fetched before anyone signs in
func (t *Tenant) Settings(ctx context.Context) (*tenants.Tenant, error) {
	settings := &tenants.Tenant{}
	if err := t.client.Do(ctx, http.MethodGet, PathTenantSettings, nil, nil, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (t *Tenant) UpgradePlan(ctx context.Context, plan string) (*tenants.Tenant, error) {
	settings := &tenants.Tenant{}
	if err := t.client.Do(ctx, http.MethodPost, PathTenantUpgrade, nil, map[string]string{"plan": plan}, settings); err != nil {
		return nil, err
	}
	return settings, nil
}
