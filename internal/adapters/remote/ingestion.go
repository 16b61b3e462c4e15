package remote

import (
	"context"
	"fmt"
)

// Ingestion pide al job de ingestión un snapshot nuevo (POST {base}/refresh).
// No espera a que los datos lleguen: el job responde en cuanto acepta el pedido.
type Ingestion struct {
	client *Client
}

// NewIngestion crea el adaptador de refresh.
func NewIngestion(client *Client) *Ingestion {
	return &Ingestion{client: client}
}

// RequestRefresh implements ports.SnapshotRefresher.
func (i *Ingestion) RequestRefresh(ctx context.Context) error {
	if err := i.client.post(ctx, "/refresh", struct{}{}, nil); err != nil {
		return fmt.Errorf("remote.RequestRefresh: %w", err)
	}
	return nil
}
