package config

const (
	// TopicKBReindex is the NSQ topic for administrative reindex requests.
	TopicKBReindex = "kb.reindex"

	// TopicKBEmbed is the NSQ topic for per-chunk embedding tasks.
	TopicKBEmbed = "kb.embed"
)
