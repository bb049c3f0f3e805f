package controllers

import "net/http"

// RegisterRoutes wires the HTTP routes for this controller.
func (c *InstancesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/instances", c.RequireAuth(c.handleListInstances))
	mux.HandleFunc("POST /api/instances", c.RequireAuth(c.handleCreateInstance))
	mux.HandleFunc("POST /api/instances/search", c.RequireAuth(c.handleSearchInstances))
	mux.HandleFunc("GET /api/instances/{id}", c.RequireAuth(c.handleGetInstance))
	mux.HandleFunc("POST /api/instances/{id}/approve", c.RequireAuth(c.handleApprove))
	mux.HandleFunc("POST /api/instances/{id}/reject", c.RequireAuth(c.handleReject))
}

func (c *TemplatesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/templates", c.RequireAuth(c.handleListTemplates))
	mux.HandleFunc("POST /api/templates", c.RequireAuth(c.handleCreateTemplate))
	mux.HandleFunc("GET /api/templates/{id}", c.RequireAuth(c.handleGetTemplate))
	mux.HandleFunc("PUT /api/templates/{id}", c.RequireAuth(c.handleUpdateTemplate))
	mux.HandleFunc("DELETE /api/templates/{id}", c.RequireAuth(c.handleDeleteTemplate))
}

func (c *RolesController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/roles", c.RequireAuth(c.handleListRoles))
	mux.HandleFunc("POST /api/roles", c.RequireAuth(c.handleCreateRole))
	mux.HandleFunc("GET /api/roles/{id}", c.RequireAuth(c.handleGetRole))
	mux.HandleFunc("PUT /api/roles/{id}", c.RequireAuth(c.handleRenameRole))
	mux.HandleFunc("DELETE /api/roles/{id}", c.RequireAuth(c.handleDeleteRole))
}

func (c *UsersController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/users", c.RequireAuth(c.handleListUsers))
	mux.HandleFunc("POST /api/users", c.RequireAuth(c.handleCreateUser))
	mux.HandleFunc("GET /api/users/{id}", c.RequireAuth(c.handleGetUser))
	mux.HandleFunc("DELETE /api/users/{id}", c.RequireAuth(c.handleDeleteUser))
}
