package registration

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	supa "github.com/supabase-community/supabase-go"
)

// StaticUserResolver always reports the same user; "" means signed out.
type StaticUserResolver string

func (r StaticUserResolver) CurrentUserID(context.Context) (string, error) {
	return string(r), nil
}

// SupabaseUserResolver looks the user up from a Supabase access token.
type SupabaseUserResolver struct {
	client      *supa.Client
	accessToken string
}

func NewSupabaseUserResolver(client *supa.Client, accessToken string) *SupabaseUserResolver {
	return &SupabaseUserResolver{client: client, accessToken: accessToken}
}

func (r *SupabaseUserResolver) CurrentUserID(ctx context.Context) (string, error) {
	if r.accessToken == "" {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resp, err := r.client.Auth.WithToken(r.accessToken).GetUser()
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if resp == nil || resp.ID == uuid.Nil {
		return "", nil
	}
	return resp.ID.String(), nil
}
