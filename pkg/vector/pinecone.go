// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package vector

import (
	"context"
	"fmt"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig configures the Pinecone vector provider.
type PineconeConfig struct {
	// APIKey is required for Pinecone authentication.
	APIKey string `yaml:"api_key"`

	// Host is the Pinecone index host. The provider does not read it: the
	// host is always resolved via DescribeIndex.
	Host string `yaml:"host,omitempty"`

	// IndexName is the default index to query.
	IndexName string `yaml:"index_name"`
}

// PineconeProvider implements Provider using a managed Pinecone index.
type PineconeProvider struct {
	client    *pinecone.Client
	indexName string
}

// NewPineconeProvider creates a new Pinecone provider.
func NewPineconeProvider(cfg PineconeConfig) (*PineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: API key is required")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("pinecone: index name is required")
	}

	clientParams := pinecone.NewClientParams{ApiKey: cfg.APIKey}
	client, err := pinecone.NewClient(clientParams)
	if err != nil {
		return nil, fmt.Errorf("pinecone: failed to create client: %w", err)
	}

	return &PineconeProvider{client: client, indexName: cfg.IndexName}, nil
}

// Name returns the provider name.
func (p *PineconeProvider) Name() string {
	return "pinecone"
}

func (p *PineconeProvider) getIndexConnection(ctx context.Context, indexName string) (*pinecone.IndexConnection, error) {
	index, err := p.client.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("pinecone: failed to describe index %s: %w", indexName, err)
	}

	indexConn, err := p.client.Index(pinecone.NewIndexConnParams{Host: index.Host})
	if err != nil {
		return nil, fmt.Errorf("pinecone: failed to connect to index %s: %w", indexName, err)
	}

	return indexConn, nil
}

// Dimension reports the index's configured vector dimension.
func (p *PineconeProvider) Dimension(ctx context.Context, collection string) (int, error) {
	indexName := collection
	if indexName == "" {
		indexName = p.indexName
	}
	index, err := p.client.DescribeIndex(ctx, indexName)
	if err != nil {
		return 0, fmt.Errorf("pinecone: failed to describe index %s: %w", indexName, err)
	}
	if index.Dimension == nil {
		return 0, nil
	}
	return int(*index.Dimension), nil
}

// Search finds the topK nearest neighbors of vector in the named index,
// restricted to vectors whose metadata matches every key in filter.
func (p *PineconeProvider) Search(ctx context.Context, collection string, vector []float32, topK int, filter map[string]string) ([]Result, error) {
	indexName := collection
	if indexName == "" {
		indexName = p.indexName
	}

	indexConn, err := p.getIndexConnection(ctx, indexName)
	if err != nil {
		return nil, err
	}
	defer indexConn.Close()

	var metadataFilter *pinecone.MetadataFilter
	if len(filter) > 0 {
		filterInterface := make(map[string]interface{}, len(filter))
		for k, v := range filter {
			filterInterface[k] = v
		}
		metadataFilter, err = structpb.NewStruct(filterInterface)
		if err != nil {
			return nil, fmt.Errorf("pinecone: failed to build metadata filter: %w", err)
		}
	}

	queryResponse, err := indexConn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		MetadataFilter:  metadataFilter,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone: query failed: %w", err)
	}

	return convertPineconeResults(queryResponse.Matches), nil
}

// Close is a no-op; Pinecone's client holds no persistent connection.
func (p *PineconeProvider) Close() error {
	return nil
}

func convertPineconeResults(matches []*pinecone.ScoredVector) []Result {
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		metadata := make(map[string]any)
		if m.Vector != nil && m.Vector.Metadata != nil {
			for k, v := range m.Vector.Metadata.AsMap() {
				metadata[k] = v
			}
		}
		id := ""
		if m.Vector != nil {
			id = m.Vector.Id
		}
		results = append(results, Result{
			ID:       id,
			Score:    m.Score,
			Metadata: metadata,
		})
	}
	return results
}

var _ Provider = (*PineconeProvider)(nil)
