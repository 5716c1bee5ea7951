package api

import (
	"net/url"
	"strconv"
	"time"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role,omitempty"`
	Status    string    `json:"status,omitempty"`
	Active    bool      `json:"active"`
	BranchID  string    `json:"branch_id,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

type UserInput struct {
	Email    string `json:"email,omitempty"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
	Role     string `json:"role,omitempty"`
	BranchID string `json:"branch_id,omitempty"`
}

// User statuses accepted by SetStatus
const (
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"
	UserStatusDisabled  = "disabled"
)

type Role struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type RoleInput struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type Branch struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Timezone string `json:"timezone,omitempty"`
	Active   bool   `json:"active"`
}

type BranchInput struct {
	Name     string `json:"name,omitempty"`
	Address  string `json:"address,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// ListOptions are the paging and search parameters shared by list endpoints
type ListOptions struct {
	Page     int
	PageSize int
	Search   string
}

func (o ListOptions) Values() url.Values {
	v := url.Values{}
	if o.Page > 0 {
		v.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(o.PageSize))
	}
	if o.Search != "" {
		v.Set("search", o.Search)
	}
	return v
}
