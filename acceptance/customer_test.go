package acceptance

import (
	"context"
	"testing"

	"github.com/Xybronix/EcoMobile-backend-sub000/customer"
)

func TestUpdateProfileAcceptsEmptyFields(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	cr := customer.NewRepository(ts.DB)

	cust, err := cr.CreateCustomer(context.Background(), "auth0|profile-sync")
	if err != nil {
		t.Fatalf("failed to create customer: %v", err)
	}

	if err := cr.UpdateProfile(context.Background(), cust.Auth0ID, "rider@example.com", "Rider One"); err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}

	// Identity providers may omit a field; the sync must not error.
	if err := cr.UpdateProfile(context.Background(), cust.Auth0ID, "rider@example.com", ""); err != nil {
		t.Fatalf("failed to update profile with empty name: %v", err)
	}

	got, err := cr.GetCustomerByAuth0ID(context.Background(), cust.Auth0ID)
	if err != nil {
		t.Fatalf("failed to get customer: %v", err)
	}
	if got.Email.String != "rider@example.com" {
		t.Errorf("expected email kept, got %q", got.Email.String)
	}
	if got.Name.String != "" {
		t.Errorf("expected empty name stored, got %q", got.Name.String)
	}
}
