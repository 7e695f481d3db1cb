package email_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mwolthuis/ticklist/internal/email"
)

// fakeRenderer renders "<name> <element>" for every template.
type fakeRenderer struct {
	testErr error
}

func (f *fakeRenderer) Render(name string, element email.TemplateElement, _ any) (string, error) {
	if f.testErr != nil {
		return "", f.testErr
	}

	return fmt.Sprintf("%s %s", name, element), nil
}

// failingSender always fails to send.
type failingSender struct {
	testErr error
}

func (f *failingSender) Send(_ context.Context, _, _ email.Address, _, _ string) error {
	return f.testErr
}

func Test_Service_Send(t *testing.T) {
	from, err := email.ParseAddress("ticklist@example.com")
	if err != nil {
		t.Fatalf("failed to parse address: %v", err)
	}

	recipient, err := email.ParseAddress("jacob@example.com")
	if err != nil {
		t.Fatalf("failed to parse address: %v", err)
	}

	t.Run("ok, renders and sends", func(t *testing.T) {
		sender := email.NewMemorySender()
		svc := email.NewService(&fakeRenderer{}, sender, from)

		err := svc.Send(context.Background(), "user-activation", recipient, nil)
		if err != nil {
			t.Fatalf("failed to send email: %v", err)
		}

		want := email.MemoryEmail{
			From:      from,
			Recipient: recipient,
			Subject:   "user-activation subject",
			Body:      "user-activation body",
		}

		if len(sender.Emails) != 1 || sender.Emails[0] != want {
			t.Errorf("got %+v, want %+v", sender.Emails, want)
		}
	})

	t.Run("fail, renderer fails", func(t *testing.T) {
		testErr := errors.New("render error")
		sender := email.NewMemorySender()
		svc := email.NewService(&fakeRenderer{testErr: testErr}, sender, from)

		err := svc.Send(context.Background(), "user-activation", recipient, nil)
		if !errors.Is(err, testErr) {
			t.Fatalf("expected error %v, got %v", testErr, err)
		}

		if len(sender.Emails) != 0 {
			t.Errorf("expected no emails, got %d", len(sender.Emails))
		}
	})

	t.Run("fail, sender fails", func(t *testing.T) {
		testErr := errors.New("send error")
		svc := email.NewService(&fakeRenderer{}, &failingSender{testErr: testErr}, from)

		err := svc.Send(context.Background(), "user-activation", recipient, nil)
		if !errors.Is(err, testErr) {
			t.Fatalf("expected error %v, got %v", testErr, err)
		}
	})
}
