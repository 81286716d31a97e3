package repository

import (
	"context"
	"strings"
	"time"

	"github.com/noghresod/shopsync/cachepolicy"
	"github.com/noghresod/shopsync/clog"
	"github.com/noghresod/shopsync/store"
)

// purgeTimeout 淘汰回调中删除本地数据的超时
const purgeTimeout = 5 * time.Second

// EvictionPurger 返回 cachepolicy 的淘汰回调：LRU 淘汰列表类 key 时删除对应的本地数据。
//
// 其他原因（失效、过期、依赖失效）只删除元数据，本地数据保留用于离线展示。
// 列表被清理后，依赖它的详情 key 随之失效，下次读取会重新拉取。
func EvictionPurger(rel store.Relational, wishlist store.Wishlist, logger clog.Logger) cachepolicy.EvictionHook {
	if logger == nil {
		logger = clog.Discard()
	}
	logger = logger.WithNamespace("repository")

	return func(key string, reason cachepolicy.EvictReason) {
		if reason != cachepolicy.ReasonLRU {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		if err := purge(ctx, rel, wishlist, key); err != nil {
			logger.Warn("purge evicted data failed", clog.String("key", key), clog.Error(err))
			return
		}
		logger.Debug("evicted data purged", clog.String("key", key))
	}
}

// purge 删除 key 独占的本地数据。详情 key（products:<id>、orders:<id>）的行与列表共享，
// 列表仍可能有效，所以只删元数据不删行
func purge(ctx context.Context, rel store.Relational, wishlist store.Wishlist, key string) error {
	namespace, _, hasID := strings.Cut(key, ":")
	if hasID {
		return nil
	}
	switch namespace {
	case KeyProducts:
		return rel.ReplaceProducts(ctx, nil)
	case KeyOrders:
		return rel.ReplaceOrders(ctx, nil)
	case KeyCart:
		return rel.ReplaceCart(ctx, nil)
	case KeyWishlist:
		return wishlist.Clear(ctx)
	}
	return nil
}
