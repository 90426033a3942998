package cache

import (
	"context"
	"fmt"
	"log/slog"
)

// SafeInvalidatePattern safely invalidates cache pattern with logging
func SafeInvalidatePattern(ctx context.Context, helper *CacheHelper, pattern string) {
	if err := helper.InvalidatePattern(ctx, pattern); err != nil {
		slog.ErrorContext(ctx, "Failed to invalidate cache pattern",
			"error", err,
			"pattern", pattern)
	}
}

// SafeDelete safely deletes cache keys with logging
func SafeDelete(ctx context.Context, helper *CacheHelper, keys ...string) {
	if err := helper.Delete(ctx, keys...); err != nil {
		slog.ErrorContext(ctx, "Failed to delete cache keys",
			"error", err,
			"keys", keys)
	}
}

// InvalidateClassroomCache invalidates all caches touched by a classroom write
func InvalidateClassroomCache(ctx context.Context, cm *CacheManager, classroomID uint, code *string) {
	SafeDelete(ctx, cm.Classroom, fmt.Sprintf("id:%d", classroomID))
	if code != nil {
		SafeDelete(ctx, cm.Code, *code)
	}
}

// InvalidateMaterialCache invalidates material listings for a classroom
func InvalidateMaterialCache(ctx context.Context, cm *CacheManager, classroomID uint) {
	SafeInvalidatePattern(ctx, cm.Material, fmt.Sprintf("classroom:%d:*", classroomID))
}
