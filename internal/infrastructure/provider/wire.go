package provider

import "github.com/google/wire"

// ProviderSet 模型供应商 ProviderSet
var ProviderSet = wire.NewSet(
	NewDefaultRegistry,
)
