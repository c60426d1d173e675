package certstore_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/HallyG/clientcerts/internal/certstore"
	"github.com/stretchr/testify/require"
)

func TestInsert(t *testing.T) {
	t.Parallel()

	t.Run("stores pem certificate with key", func(t *testing.T) {
		t.Parallel()

		created := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
		store := setupStore(t, certstore.WithClock(func() time.Time { return created }))
		tc := newTestCert(t, "client.example.com")

		stored, err := store.Insert(t.Context(), certstore.ImportRequest{
			Cert: certstore.CertData{Data: tc.certPEM},
			Key:  &certstore.CertData{Data: tc.keyPEM, Passphrase: ptr("")},
			Name: "my cert",
			Type: certstore.TypePEM,
		})
		require.NoError(t, err)
		require.NotEmpty(t, stored.ID)
		require.Equal(t, "my cert", stored.Name)
		require.Equal(t, created, stored.Created)
		require.True(t, stored.HasKey())

		got, err := store.Get(t.Context(), stored.ID)
		require.NoError(t, err)
		require.Equal(t, stored, got)
		require.Nil(t, got.Cert.Passphrase)
		require.NotNil(t, got.Key.Passphrase)
		require.Empty(t, *got.Key.Passphrase)
	})

	t.Run("stores p12 certificate without key", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)
		tc := newTestCert(t, "p12.example.com")

		stored, err := store.Insert(t.Context(), certstore.ImportRequest{
			Cert: certstore.CertData{Data: tc.p12(t, "secret"), Passphrase: ptr("secret")},
			Name: "p12",
			Type: certstore.TypeP12,
		})
		require.NoError(t, err)
		require.False(t, stored.HasKey())

		got, err := store.Get(t.Context(), stored.ID)
		require.NoError(t, err)
		require.Equal(t, stored.Cert.Data, got.Cert.Data)
		require.Equal(t, "secret", *got.Cert.Passphrase)
		require.Nil(t, got.Key)
	})

	t.Run("uses common name when name is empty", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)
		tc := newTestCert(t, "derived.example.com")

		stored, err := store.Insert(t.Context(), certstore.ImportRequest{
			Cert: certstore.CertData{Data: tc.certPEM},
			Type: certstore.TypePEM,
		})
		require.NoError(t, err)
		require.Equal(t, "derived.example.com", stored.Name)
	})

	t.Run("keeps empty name when certificate cannot be read", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		stored, err := store.Insert(t.Context(), certstore.ImportRequest{
			Cert: certstore.CertData{Data: []byte("not a certificate")},
			Type: certstore.TypePEM,
		})
		require.NoError(t, err)
		require.Empty(t, stored.Name)
	})

	tests := map[string]struct {
		req         certstore.ImportRequest
		expectedErr string
	}{
		"error when type missing": {
			req:         certstore.ImportRequest{Cert: certstore.CertData{Data: []byte("x")}},
			expectedErr: "type: cannot be blank",
		},
		"error when type unknown": {
			req:         certstore.ImportRequest{Cert: certstore.CertData{Data: []byte("x")}, Type: "der"},
			expectedErr: "type: must be a valid value",
		},
		"error when cert data empty": {
			req:         certstore.ImportRequest{Type: certstore.TypePEM},
			expectedErr: "data: cannot be blank",
		},
		"error when key data empty": {
			req: certstore.ImportRequest{
				Cert: certstore.CertData{Data: []byte("x")},
				Key:  &certstore.CertData{},
				Type: certstore.TypePEM,
			},
			expectedErr: "data: cannot be blank",
		},
		"error when key given for p12": {
			req: certstore.ImportRequest{
				Cert: certstore.CertData{Data: []byte("x")},
				Key:  &certstore.CertData{Data: []byte("y")},
				Type: certstore.TypeP12,
			},
			expectedErr: "key: is only supported for pem certificates",
		},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			store := setupStore(t)

			stored, err := store.Insert(t.Context(), test.req)
			require.ErrorContains(t, err, "invalid import request")
			require.ErrorContains(t, err, test.expectedErr)
			require.Nil(t, stored)
		})
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	t.Run("returns newest first", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
		store := setupStore(t, certstore.WithClock(func() time.Time {
			now = now.Add(time.Minute)
			return now
		}))

		for _, name := range []string{"first", "second", "third"} {
			_, err := store.Insert(t.Context(), certstore.ImportRequest{
				Cert: certstore.CertData{Data: []byte("data")},
				Name: name,
				Type: certstore.TypePEM,
			})
			require.NoError(t, err)
		}

		certs, err := store.List(t.Context())
		require.NoError(t, err)
		require.Len(t, certs, 3)
		require.Equal(t, "third", certs[0].Name)
		require.Equal(t, "second", certs[1].Name)
		require.Equal(t, "first", certs[2].Name)
	})

	t.Run("returns empty list when no certificates", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		certs, err := store.List(t.Context())
		require.NoError(t, err)
		require.Empty(t, certs)
	})
}

func TestGet(t *testing.T) {
	t.Parallel()

	t.Run("returns not found for unknown id", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		cert, err := store.Get(t.Context(), "missing")
		require.ErrorIs(t, err, certstore.ErrNotFound)
		require.ErrorContains(t, err, "missing")
		require.Nil(t, cert)
	})
}

func TestDelete(t *testing.T) {
	t.Parallel()

	t.Run("removes certificate", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		stored, err := store.Insert(t.Context(), certstore.ImportRequest{
			Cert: certstore.CertData{Data: []byte("data")},
			Type: certstore.TypePEM,
		})
		require.NoError(t, err)

		require.NoError(t, store.Delete(t.Context(), stored.ID))

		_, err = store.Get(t.Context(), stored.ID)
		require.ErrorIs(t, err, certstore.ErrNotFound)
	})

	t.Run("returns not found for unknown id", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		err := store.Delete(t.Context(), "missing")
		require.ErrorIs(t, err, certstore.ErrNotFound)
	})

	t.Run("delete all returns removed count", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		for range 2 {
			_, err := store.Insert(t.Context(), certstore.ImportRequest{
				Cert: certstore.CertData{Data: []byte("data")},
				Type: certstore.TypeP12,
			})
			require.NoError(t, err)
		}

		n, err := store.DeleteAll(t.Context())
		require.NoError(t, err)
		require.EqualValues(t, 2, n)

		certs, err := store.List(t.Context())
		require.NoError(t, err)
		require.Empty(t, certs)
	})
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("persists to file", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "certs.db")

		store, err := certstore.Open(t.Context(), path)
		require.NoError(t, err)

		stored, err := store.Insert(t.Context(), certstore.ImportRequest{
			Cert: certstore.CertData{Data: []byte("data")},
			Name: "persisted",
			Type: certstore.TypePEM,
		})
		require.NoError(t, err)
		require.NoError(t, store.Close())

		reopened, err := certstore.Open(t.Context(), path)
		require.NoError(t, err)
		t.Cleanup(func() { _ = reopened.Close() })

		got, err := reopened.Get(t.Context(), stored.ID)
		require.NoError(t, err)
		require.Equal(t, "persisted", got.Name)
	})
	for _, name := range []string{"certs?mode=ro.db", "certs#1.db"} {
		t.Run("returns error when path contains uri delimiter "+name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), name)

			store, err := certstore.Open(t.Context(), path)
			require.ErrorContains(t, err, "must not contain '?' or '#'")
			require.Nil(t, store)
		})
	}
}

func TestInsertAll(t *testing.T) {
	t.Parallel()

	t.Run("stores every request", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)
		tc := newTestCert(t, "batch.example.com")

		stored, err := store.InsertAll(t.Context(), []certstore.ImportRequest{
			{Cert: certstore.CertData{Data: tc.certPEM}, Type: certstore.TypePEM},
			{Cert: certstore.CertData{Data: tc.p12(t, "pw"), Passphrase: ptr("pw")}, Name: "bundle", Type: certstore.TypeP12},
		})
		require.NoError(t, err)
		require.Len(t, stored, 2)
		require.Equal(t, "batch.example.com", stored[0].Name)
		require.Equal(t, "bundle", stored[1].Name)
		require.NotEqual(t, stored[0].ID, stored[1].ID)

		certs, err := store.List(t.Context())
		require.NoError(t, err)
		require.Len(t, certs, 2)
	})

	t.Run("stores nothing when any request is invalid", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)
		tc := newTestCert(t, "batch.example.com")

		stored, err := store.InsertAll(t.Context(), []certstore.ImportRequest{
			{Cert: certstore.CertData{Data: tc.certPEM}, Name: "ok", Type: certstore.TypePEM},
			{Cert: certstore.CertData{Data: tc.certPEM}, Type: "der"},
		})
		require.ErrorContains(t, err, "invalid import request 1")
		require.Nil(t, stored)

		certs, err := store.List(t.Context())
		require.NoError(t, err)
		require.Empty(t, certs)
	})

	t.Run("stores nothing when context canceled", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := store.InsertAll(ctx, []certstore.ImportRequest{
			{Cert: certstore.CertData{Data: []byte("data")}, Name: "one", Type: certstore.TypePEM},
		})
		require.ErrorIs(t, err, context.Canceled)

		certs, err := store.List(t.Context())
		require.NoError(t, err)
		require.Empty(t, certs)
	})

	t.Run("accepts an empty batch", func(t *testing.T) {
		t.Parallel()

		store := setupStore(t)

		stored, err := store.InsertAll(t.Context(), nil)
		require.NoError(t, err)
		require.Empty(t, stored)
	})
}
