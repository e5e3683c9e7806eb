package tokenizer

import "github.com/google/wire"

// ProviderSet 分词 ProviderSet
var ProviderSet = wire.NewSet(
	NewCounter,
)
