package app

import (
	"github.com/hykura1501/e-commerce/internal/adapter/cache"
	"github.com/hykura1501/e-commerce/internal/adapter/rest"
	"github.com/hykura1501/e-commerce/internal/usecase"
)

// backends builds anonymous carts on Redis slots and signed-in carts on
// the remote cart service.
type backends struct {
	slots *cache.RedisCartSlots
	carts *rest.CartClient
}

func (b backends) Local(sessionID string) usecase.CartBackend {
	return usecase.NewLocalBackend(b.slots.For(sessionID))
}

func (b backends) Remote(userID string) usecase.CartBackend {
	return usecase.NewRemoteBackend(b.carts.ForUser(userID))
}
