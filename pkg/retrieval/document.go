package retrieval

// Document is the canonical record produced from one item of the retriever
// service's response. Only Content is guaranteed; everything else depends
// on what the upstream indexed.
type Document struct {
	ID         string                 `json:"id,omitempty"`
	Title      string                 `json:"title,omitempty"`
	Content    string                 `json:"content"`
	Score      *float64               `json:"score,omitempty"`
	ChunkID    string                 `json:"chunk_id,omitempty"`
	ChunkType  string                 `json:"chunk_type,omitempty"` // section label (描述/原料/做法)
	OriginID   string                 `json:"origin_id,omitempty"`
	Source     map[string]interface{} `json:"source,omitempty"`      // raw recipe payload
	SourceText string                 `json:"source_text,omitempty"` // human-readable reconstruction
}
