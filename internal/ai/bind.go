package ai

import "context"

// Generator binds a Client to one chat configuration so callers deal only in
// message lists. It satisfies the generator interfaces declared by the app and
// rerank packages.
type Generator struct {
	client *Client
	cfg    ChatConfig
}

func NewGenerator(client *Client, cfg ChatConfig) *Generator {
	return &Generator{client: client, cfg: cfg}
}

func (g *Generator) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	return g.client.Complete(ctx, g.cfg, messages)
}

func (g *Generator) Stream(ctx context.Context, messages []ChatMessage, onChunk func(string) error) (string, error) {
	return g.client.StreamComplete(ctx, g.cfg, messages, onChunk)
}

// Embedder binds a Client to one embedding configuration.
type Embedder struct {
	client *Client
	cfg    EmbeddingConfig
}

func NewEmbedder(client *Client, cfg EmbeddingConfig) *Embedder {
	return &Embedder{client: client, cfg: cfg}
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.cfg, text)
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.client.EmbedBatch(ctx, e.cfg, texts)
}
