package network

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	domainErrors "netif-recorder/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvConfQuerier_Nameservers(t *testing.T) {
	ctx := context.Background()

	t.Run("nameservers in file order", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "resolv.conf")
		content := `# generated by NetworkManager
search example.internal
nameserver 8.8.8.8
nameserver 1.1.1.1
options edns0
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		servers, err := NewResolvConfQuerier(path, newTestLogger()).Nameservers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"8.8.8.8", "1.1.1.1"}, servers)
	})

	t.Run("no nameserver lines", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "resolv.conf")
		require.NoError(t, os.WriteFile(path, []byte("search example.internal\n"), 0644))

		servers, err := NewResolvConfQuerier(path, newTestLogger()).Nameservers(ctx)
		require.NoError(t, err)
		assert.Empty(t, servers)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := NewResolvConfQuerier(filepath.Join(t.TempDir(), "absent"), newTestLogger()).Nameservers(ctx)
		assert.True(t, domainErrors.IsExternalQueryError(err))
	})
}
