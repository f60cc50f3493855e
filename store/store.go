package store

// 注意：此包只包含实现，接口定义在 core 包。
// 使用 core.FactStore / core.RecStore / core.Cache 接口。
//
// 示例：
//   mem := store.NewMemoryStore()          // 同时实现三个接口，测试/开发用
//   pg, _ := store.NewPostgresStore(...)   // FactStore + RecStore，生产用
//   rds, _ := store.NewRedisCache(...)     // Cache，生产用
