package memory

import (
	"testing"

	"github.com/marmos91/dittodrive/pkg/store/metadata"
	metadatatesting "github.com/marmos91/dittodrive/pkg/store/metadata/testing"
)

func TestMemoryMetadataStore(t *testing.T) {
	suite := &metadatatesting.StoreTestSuite{
		NewStore: func() metadata.Store {
			return NewMemoryMetadataStore()
		},
	}
	suite.Run(t)
}
