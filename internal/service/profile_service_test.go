package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestGetProfile_SynthesizesDefaults(t *testing.T) {
	f := setup(t)

	profile, err := f.profiles.GetProfile(context.Background(), "user-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada's Todo List", profile.DisplayName)
	assert.Equal(t, "dark", profile.Theme)
	assert.Nil(t, profile.AccentColor)
}

func TestUpdateProfile_CreateIfAbsent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// First edit creates the record with the edited field plus defaults.
	updated, err := f.profiles.UpdateProfile(ctx, "user-1", "ada@example.com", UpdateProfileRequest{
		AccentColor: strPtr("#3B82F6"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ada's Todo List", updated.DisplayName)
	require.NotNil(t, updated.AccentColor)
	assert.Equal(t, "#3B82F6", *updated.AccentColor)

	// Second edit patches the existing record.
	updated, err = f.profiles.UpdateProfile(ctx, "user-1", "ada@example.com", UpdateProfileRequest{
		DisplayName: strPtr("Ada's Board"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada's Board", updated.DisplayName)
	require.NotNil(t, updated.AccentColor)
	assert.Equal(t, "#3B82F6", *updated.AccentColor)

	stored, err := f.profiles.GetProfile(ctx, "user-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada's Board", stored.DisplayName)
}

func TestUpdateProfile_Validation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		req     UpdateProfileRequest
		wantErr error
	}{
		{name: "bad accent color", req: UpdateProfileRequest{AccentColor: strPtr("teal")}, wantErr: ErrInvalidAccentColor},
		{name: "short hex", req: UpdateProfileRequest{AccentColor: strPtr("#FFF")}, wantErr: ErrInvalidAccentColor},
		{name: "bad theme", req: UpdateProfileRequest{Theme: strPtr("solarized")}, wantErr: ErrInvalidTheme},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.profiles.UpdateProfile(ctx, "user-1", "ada@example.com", tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	// Nothing was persisted by the rejected edits.
	profile, err := f.profiles.GetProfile(ctx, "user-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada's Todo List", profile.DisplayName)
}

func TestUpdateProfile_ClearAccentRestoresThemeDefault(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.profiles.UpdateProfile(ctx, "user-1", "ada@example.com", UpdateProfileRequest{
		AccentColor: strPtr("#EC4899"),
	})
	require.NoError(t, err)

	cleared, err := f.profiles.UpdateProfile(ctx, "user-1", "ada@example.com", UpdateProfileRequest{
		ClearAccent: true,
	})
	require.NoError(t, err)
	assert.Nil(t, cleared.AccentColor)
}

func TestUpdateProfile_EmptyDisplayNameFallsBack(t *testing.T) {
	f := setup(t)

	updated, err := f.profiles.UpdateProfile(context.Background(), "user-1", "grace@example.com", UpdateProfileRequest{
		DisplayName: strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "grace's Todo List", updated.DisplayName)
}

func TestUpdateProfile_ThemeToggle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	updated, err := f.profiles.UpdateProfile(ctx, "user-1", "ada@example.com", UpdateProfileRequest{
		Theme: strPtr("light"),
	})
	require.NoError(t, err)
	assert.Equal(t, "light", updated.Theme)

	stored, err := f.profiles.GetProfile(ctx, "user-1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "light", stored.Theme)
}
