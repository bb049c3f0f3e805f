package domain

import "database/sql"

type User struct {
	ID            int64          `json:"id"`
	Username      string         `json:"username"`
	Password      string         `json:"-"`
	RoleID        int64          `json:"roleId"`
	SessionID     sql.NullString `json:"-"`
	ApiKey        sql.NullString `json:"-"`
	SessionExpiry sql.NullTime   `json:"-"`
	Created       sql.NullTime   `json:"created"`
	Enabled       sql.NullBool   `json:"enabled"`
}
