//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListCourses(t *testing.T) {
	resp := doGet(t, "/api/courses")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	courses := decodeJSON[[]courseResponse](t, resp)
	if len(courses) != 8 {
		t.Fatalf("courses: got %d, want 8", len(courses))
	}

	first := courses[0]
	if first.Title != "Go Fundamentals" {
		t.Errorf("title: got %q, want Go Fundamentals", first.Title)
	}
	if first.Price != 19.99 {
		t.Errorf("price: got %v, want 19.99", first.Price)
	}
	if first.Status != "published" {
		t.Errorf("status: got %q, want published", first.Status)
	}
}

func TestGetCourse(t *testing.T) {
	resp := doGet(t, "/api/courses/2")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	c := decodeJSON[courseResponse](t, resp)
	if c.Title != "Concurrent Programming in Go" {
		t.Errorf("title: got %q", c.Title)
	}
	if c.Price != 49.99 {
		t.Errorf("price: got %v, want 49.99", c.Price)
	}
}

func TestGetCourse_NotFound(t *testing.T) {
	resp := doGet(t, "/api/courses/999999")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}

	body := decodeJSON[errorResponse](t, resp)
	if body.Code != http.StatusNotFound {
		t.Errorf("error code: got %d, want 404", body.Code)
	}
}

func TestGetCourse_BadID(t *testing.T) {
	resp := doGet(t, "/api/courses/not-a-number")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
