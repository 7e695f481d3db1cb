package main

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"
)

// Test_UserStories tests the user stories of the application.
// These are end-to-end tests and won't check the nitty-gritty details or edge cases.
func Test_UserStories(t *testing.T) {
	t.Run("as a new user, I want to", testEnv(func(t *testing.T) {
		// runAppForTest waits for the app to be up and stops it after the test finishes.
		logs := runAppForTest(t)

		c := newClient(t)

		t.Run("be sent to the login page when visiting my todos while logged out", func(t *testing.T) {
			body := c.mustGetBody(t, "/todos", http.StatusOK)

			symbol := `action="/login"`
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("view the user registration form", func(t *testing.T) {
			body := c.mustGetBody(t, "/register", http.StatusOK)

			// Symbolic check for the form. I'm not checking the HTML too much,
			// because I don't want every change to the front-end break these tests.
			symbol := `action="/register"`
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("submit the registration form", func(t *testing.T) {
			body := c.mustSubmitForm(t, "/register", "/register", url.Values{
				"username":  {"jacob"},
				"email":     {"jacob@example.com"},
				"password1": {"reallyStrongPassword1"},
				"password2": {"reallyStrongPassword1"},
			})

			symbol := "We sent you an email to verify your account"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("be rejected when logging in before verifying my email", func(t *testing.T) {
			body := c.mustSubmitForm(t, "/login", "/login", url.Values{
				"username": {"jacob"},
				"password": {"reallyStrongPassword1"},
			})

			symbol := "Email is not verified, please check your email inbox"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("verify my email via the emailed link", func(t *testing.T) {
			activationURL := waitAndCaptureActivationURL(t, logs, "jacob@example.com")
			t.Logf("found activation url: %s", activationURL)

			body := c.mustGetBody(t, strings.TrimPrefix(activationURL, testURLPrefix), http.StatusOK)

			symbol := "Email verified, you can now login"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("login to my account", func(t *testing.T) {
			body := c.mustSubmitForm(t, "/login", "/login", url.Values{
				"username": {"jacob"},
				"password": {"reallyStrongPassword1"},
			})

			symbol := "Welcome jacob"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("be taken to my todos when revisiting the login or registration page", func(t *testing.T) {
			for _, path := range []string{"/login", "/register"} {
				body := c.mustGetBody(t, path, http.StatusOK)

				// The empty todo list marks that we landed on the index.
				symbol := "Nothing here yet."
				if !strings.Contains(body, symbol) {
					t.Errorf("expected the todo index for %s, got body\n%s", path, body)
				}
			}
		})

		t.Run("see an empty todo list", func(t *testing.T) {
			body := c.mustGetBody(t, "/todos", http.StatusOK)

			symbol := "Nothing here yet."
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		var todoPath string

		t.Run("create a todo", func(t *testing.T) {
			body := c.mustSubmitForm(t, "/todos/create", "/todos/create", url.Values{
				"title":       {"Buy milk"},
				"description": {"Whole milk, two bottles"},
			})

			for _, symbol := range []string{"Todo created successfully", "Buy milk"} {
				if !strings.Contains(body, symbol) {
					t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
				}
			}

			// The detail page links to the edit form, capture the todo path from it.
			m := regexp.MustCompile(`(/todos/\d+)/edit`).FindStringSubmatch(body)
			if m == nil {
				t.Fatalf("did not find todo edit link in body\n%s", body)
			}
			todoPath = m[1]
		})

		t.Run("create a second, completed todo", func(t *testing.T) {
			body := c.mustSubmitForm(t, "/todos/create", "/todos/create", url.Values{
				"title":        {"Ship release"},
				"description":  {"Went out last week"},
				"is_completed": {"on"},
			})

			symbol := "Completed"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("see both todos with their counts", func(t *testing.T) {
			body := c.mustGetBody(t, "/todos", http.StatusOK)

			for _, symbol := range []string{"Buy milk", "Ship release", "All (2)", "Incomplete (1)", "Complete (1)"} {
				if !strings.Contains(body, symbol) {
					t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
				}
			}
		})

		t.Run("filter my todos on completion state", func(t *testing.T) {
			body := c.mustGetBody(t, "/todos?filter=complete", http.StatusOK)
			if !strings.Contains(body, "Ship release") {
				t.Errorf("expected completed todo in body\n%s", body)
			}
			if strings.Contains(body, "Buy milk") {
				t.Errorf("did not expect incomplete todo in body\n%s", body)
			}

			body = c.mustGetBody(t, "/todos?filter=incomplete", http.StatusOK)
			if !strings.Contains(body, "Buy milk") {
				t.Errorf("expected incomplete todo in body\n%s", body)
			}
			if strings.Contains(body, "Ship release") {
				t.Errorf("did not expect completed todo in body\n%s", body)
			}
		})

		t.Run("edit a todo", func(t *testing.T) {
			editPath := todoPath + "/edit"
			body := c.mustSubmitForm(t, editPath, editPath, url.Values{
				"title":       {"Buy oat milk"},
				"description": {"Whole milk, two bottles"},
			})

			for _, symbol := range []string{"Todo update success", "Buy oat milk"} {
				if !strings.Contains(body, symbol) {
					t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
				}
			}
		})

		t.Run("be unable to touch todos of other users", func(t *testing.T) {
			c2 := newClient(t)
			registerAndActivate(t, c2, logs, "maria", "maria@example.com")

			c2.mustGetBody(t, todoPath, http.StatusNotFound)
			c2.mustGetBody(t, todoPath+"/edit", http.StatusNotFound)

			// Deleting someone else's todo does not reveal whether it exists,
			// the confirmation page is simply shown again.
			deletePath := todoPath + "/delete"
			body := c2.mustSubmitForm(t, deletePath, deletePath, url.Values{})
			if !strings.Contains(body, "Buy oat milk") {
				t.Errorf("expected delete confirmation in body\n%s", body)
			}

			// The owner still sees the todo.
			body = c.mustGetBody(t, todoPath, http.StatusOK)
			if !strings.Contains(body, "Buy oat milk") {
				t.Errorf("expected todo to still exist, got body\n%s", body)
			}
		})

		t.Run("activate an account from a browser where someone else is logged in", func(t *testing.T) {
			c3 := newClient(t)
			c3.mustSubmitForm(t, "/register", "/register", url.Values{
				"username":  {"pete"},
				"email":     {"pete@example.com"},
				"password1": {"reallyStrongPassword1"},
				"password2": {"reallyStrongPassword1"},
			})

			activationURL := waitAndCaptureActivationURL(t, logs, "pete@example.com")

			// Follow the link with the client that is logged in as jacob,
			// like a shared family computer.
			body := c.mustGetBody(t, strings.TrimPrefix(activationURL, testURLPrefix), http.StatusOK)
			symbol := "Email verified, you can now login"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}

			// The activated account can now log in on its own client.
			body = c3.mustSubmitForm(t, "/login", "/login", url.Values{
				"username": {"pete"},
				"password": {"reallyStrongPassword1"},
			})
			symbol = "Welcome pete"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})

		t.Run("delete a todo after confirming", func(t *testing.T) {
			deletePath := todoPath + "/delete"

			body := c.mustGetBody(t, deletePath, http.StatusOK)
			if !strings.Contains(body, "Buy oat milk") {
				t.Errorf("expected confirmation page in body\n%s", body)
			}

			body = c.mustSubmitForm(t, deletePath, deletePath, url.Values{})
			for _, symbol := range []string{"Todo deleted successfully", "All (1)"} {
				if !strings.Contains(body, symbol) {
					t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
				}
			}
		})

		t.Run("logout", func(t *testing.T) {
			body := c.mustSubmitForm(t, "/todos", "/logout", url.Values{})

			symbol := "Successfully logged out"
			if !strings.Contains(body, symbol) {
				t.Errorf("did not find\n%s\nin body\n%s", symbol, body)
			}
		})
	}))
}

// runAppForTest runs the app while the test is running.
// This function returns after the app is confirmed to be up and stops
// the app when the test is cleaned up.
func runAppForTest(t *testing.T) *safeBuffer {
	t.Helper()

	// This helper function does two things:
	// 1. Run the app in a goroutine.
	// 2. Wait for the app to be up and running.

	// Both these tasks are done concurrently and share the same context.
	// When this context is cancelled, both tasks will stop.

	buf := newBuffer()

	// we will stop the server after a timeout or when the test is cleaned up.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(func() {
		// stop both tasks if it's still in progress.
		cancel()

		if t.Failed() {
			t.Logf("app output:\n%s", buf.String())
		}
	})

	// Task 1: Run the app.
	go func() {
		code := run(ctx, buf)
		if code != 0 {
			t.Errorf("run exited with code %d", code)
		}

		// stop the other task
		cancel()
	}()

	// Task 2: Wait for the app to be available.
	err := waitForStatusOK(ctx, publicURL)
	if err != nil {
		t.Fatalf("error waiting for status ok: %v", err)
	}

	return buf
}

type client struct {
	http *http.Client
}

func newClient(t *testing.T) *client {
	t.Helper()

	// The cookie jar keeps both the session and the CSRF cookie between
	// requests, like a browser would.
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("failed to create cookie jar: %v", err)
	}

	return &client{
		http: &http.Client{
			Jar:     jar,
			Timeout: httpClientTimeout,
		},
	}
}

func (c *client) mustGetBody(t *testing.T, path string, wantStatus int) string {
	t.Helper()

	res, err := c.http.Get(testURLPrefix + path)
	if err != nil {
		t.Fatalf("unexpected error during get request: %v", err)
	}

	defer func() {
		err := res.Body.Close()
		if err != nil {
			t.Fatalf("unexpected error closing response body: %v", err)
		}
	}()

	if res.StatusCode != wantStatus {
		t.Fatalf("unexpected status code: %d", res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("unexpected error reading response body: %v", err)
	}

	return string(data)
}

// mustSubmitForm gets formPath to obtain a fresh CSRF token, posts the form
// to postPath and returns the body after any redirects were followed.
func (c *client) mustSubmitForm(t *testing.T, formPath, postPath string, form url.Values) string {
	t.Helper()

	page := c.mustGetBody(t, formPath, http.StatusOK)
	form.Set("csrf_token", mustCSRFToken(t, page))

	req, err := http.NewRequest(http.MethodPost, testURLPrefix+postPath, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("unexpected error creating post request: %v", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := c.http.Do(req)
	if err != nil {
		t.Fatalf("unexpected error during post request: %v", err)
	}

	defer func() {
		err := res.Body.Close()
		if err != nil {
			t.Fatalf("unexpected error closing response body: %v", err)
		}
	}()

	if res.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status code: %d", res.StatusCode)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("unexpected error reading response body: %v", err)
	}

	return string(data)
}

func mustCSRFToken(t *testing.T, body string) string {
	t.Helper()

	m := regexp.MustCompile(`name="csrf_token" value="([^"]+)"`).FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("did not find csrf token in body\n%s", body)
	}

	// The template engine escapes the attribute value, a "+" in the token
	// is rendered as "&#43;". Posting the escaped form gets a 403.
	return html.UnescapeString(m[1])
}

// registerAndActivate runs the whole registration flow for an extra user,
// leaving the client logged in.
func registerAndActivate(t *testing.T, c *client, logs *safeBuffer, username, email string) {
	t.Helper()

	c.mustSubmitForm(t, "/register", "/register", url.Values{
		"username":  {username},
		"email":     {email},
		"password1": {"reallyStrongPassword1"},
		"password2": {"reallyStrongPassword1"},
	})

	activationURL := waitAndCaptureActivationURL(t, logs, email)
	c.mustGetBody(t, strings.TrimPrefix(activationURL, testURLPrefix), http.StatusOK)

	c.mustSubmitForm(t, "/login", "/login", url.Values{
		"username": {username},
		"password": {"reallyStrongPassword1"},
	})
}

func waitAndCaptureActivationURL(t *testing.T, logs *safeBuffer, addr string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	captureFunc := func() (string, bool) {

		lookFor := []string{
			`msg="send email"`,
			`subject="Activate your account"`,
			fmt.Sprintf(`recipient=%s`, addr),
		}

	OUTER:
		for _, line := range strings.Split(logs.String(), "\n") {
			for _, l := range lookFor {
				if !strings.Contains(line, l) {
					continue OUTER
				}
			}

			url, ok := extractActivationURL(line)
			if ok {
				return url, true
			}
		}

		return "", false
	}

	for {
		select {
		case <-ticker.C:
			if url, ok := captureFunc(); ok {
				return url
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for email to %s", addr)
		}
	}
}

func extractActivationURL(s string) (string, bool) {
	s = strings.ReplaceAll(s, `\n`, " ")
	r := regexp.MustCompile(`\b(https?)://localhost:8888/activate-user/\S+`)
	result := r.FindString(s)
	if result == "" {
		return "", false
	}
	return result, true
}
