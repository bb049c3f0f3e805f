package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// The repos are nil here; every case below must be rejected before any
// repository call.

func postTemplate(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	c := NewTemplatesController(nil, nil, nil, &MockUserRepo{})
	req := httptest.NewRequest("POST", "/api/templates", strings.NewReader(body))
	w := httptest.NewRecorder()
	c.handleCreateTemplate(w, req)
	return w
}

func TestTemplatesController_Create_InvalidJSON(t *testing.T) {
	w := postTemplate(t, `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTemplatesController_Create_MissingSteps(t *testing.T) {
	w := postTemplate(t, `{"name":"ExpenseApproval","steps":[]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTemplatesController_Create_DuplicateStepOrder(t *testing.T) {
	w := postTemplate(t, `{"name":"ExpenseApproval","steps":[
		{"roleId":1,"name":"manager","stepOrder":1},
		{"roleId":2,"name":"finance","stepOrder":1}
	]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "order") {
		t.Errorf("Expected step order message, got %s", w.Body.String())
	}
}

func TestTemplatesController_Create_UnknownConditionOperator(t *testing.T) {
	w := postTemplate(t, `{"name":"ExpenseApproval","steps":[
		{"roleId":1,"name":"manager","stepOrder":1,"condition":"amount ~ 100"}
	]}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}

func TestTemplatesController_Get_BadID(t *testing.T) {
	c := NewTemplatesController(nil, nil, nil, &MockUserRepo{})
	req := httptest.NewRequest("GET", "/api/templates/abc", nil)
	req.SetPathValue("id", "abc")
	w := httptest.NewRecorder()
	c.handleGetTemplate(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
