package profile_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orvex/internal/domain"
	"orvex/internal/profile"
)

const storeYAML = `default:
  default_currency: EUR
  label_aliases:
    customer_po_number: ["PO", "Purchase Order"]
acme:
  default_currency: USD
  metadata:
    force_ocr: "true"
  forms:
    default_form:
      description: standard fax form
      reasoning_notes: ["Quantities are always integers."]
    summer_promo:
      description: promo order sheet
      label_aliases:
        discount_percent: ["Promo %"]
`

func writeStore(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "customer_profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRepository_LoadKnownProfile(t *testing.T) {
	repo := profile.NewRepository(writeStore(t, storeYAML), time.Minute)

	p, err := repo.Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", p.ID)
	assert.Equal(t, "USD", p.DefaultCurrency)
	assert.Equal(t, "true", p.Metadata["force_ocr"])
}

func TestRepository_UnknownProfileFallsBackToDefault(t *testing.T) {
	repo := profile.NewRepository(writeStore(t, storeYAML), time.Minute)

	p, err := repo.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProfileID, p.ID)
	assert.Equal(t, "EUR", p.DefaultCurrency)
}

func TestRepository_EmptyIDUsesDefault(t *testing.T) {
	repo := profile.NewRepository(writeStore(t, storeYAML), time.Minute)

	p, err := repo.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProfileID, p.ID)
}

func TestRepository_MissingStoreYieldsEmptyDefault(t *testing.T) {
	repo := profile.NewRepository(filepath.Join(t.TempDir(), "absent.yaml"), time.Minute)

	p, err := repo.Load(context.Background(), "anyone")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultProfileID, p.ID)
	assert.Empty(t, p.DefaultCurrency)
}

func TestRepository_FormResolution(t *testing.T) {
	repo := profile.NewRepository(writeStore(t, storeYAML), time.Minute)
	p, err := repo.Load(context.Background(), "acme")
	require.NoError(t, err)

	form := p.ResolveForm("summer_promo")
	require.NotNil(t, form)
	assert.Equal(t, "summer_promo", form.ID)

	// Unknown form falls back to default_form
	form = p.ResolveForm("winter_promo")
	require.NotNil(t, form)
	assert.Equal(t, domain.DefaultFormID, form.ID)
}

func TestRepository_CacheRefreshAfterTTL(t *testing.T) {
	path := writeStore(t, storeYAML)
	repo := profile.NewRepository(path, 10*time.Millisecond)

	p, err := repo.Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "USD", p.DefaultCurrency)

	updated := "acme:\n  default_currency: GBP\ndefault: {}\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))
	time.Sleep(20 * time.Millisecond)

	p, err = repo.Load(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "GBP", p.DefaultCurrency)
}

func TestProfile_PromptMetadataMergesFormAliases(t *testing.T) {
	repo := profile.NewRepository(writeStore(t, storeYAML), time.Minute)
	p, err := repo.Load(context.Background(), "acme")
	require.NoError(t, err)

	meta := p.PromptMetadata("summer_promo")
	assert.Contains(t, meta, "Profile acme")
	assert.Contains(t, meta, "default currency: USD")
	assert.Contains(t, meta, "summer_promo")
	assert.Contains(t, meta, "Promo %")
}
