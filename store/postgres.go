package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Flcn/SantaRecommendationEngine/core"
)

// PostgresStore 是 pgx 实现的 FactStore + RecStore。
//
// 双库架构：
//   - main 库（只读）：交互/物品事实，属于上游平台
//   - rec 库（读写）：预计算的热度记录、用户画像、相似度边
//
// 所有 Replace* 在单个事务内完成"清空旧代 + 写入新代"，
// 读者在提交前看到的始终是完整的旧一代。
type PostgresStore struct {
	main *pgxpool.Pool
	rec  *pgxpool.Pool
}

// NewPostgresStore 按连接串创建双库存储。
func NewPostgresStore(ctx context.Context, mainURL, recURL string) (*PostgresStore, error) {
	main, err := pgxpool.New(ctx, mainURL)
	if err != nil {
		return nil, fmt.Errorf("connect main db: %w", err)
	}
	rec, err := pgxpool.New(ctx, recURL)
	if err != nil {
		main.Close()
		return nil, fmt.Errorf("connect rec db: %w", err)
	}
	return &PostgresStore{main: main, rec: rec}, nil
}

// NewPostgresStoreWithPools 复用已有连接池（测试/共享池场景）。
func NewPostgresStoreWithPools(main, rec *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{main: main, rec: rec}
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) Close() {
	s.main.Close()
	s.rec.Close()
}

// ========== FactStore（main 库，只读） ==========

func (s *PostgresStore) ListInteractions(ctx context.Context, since time.Time, limit int) ([]core.InteractionEvent, error) {
	const q = `
		SELECT user_id, item_id, 'like' AS kind, created_at FROM likes WHERE created_at >= $1
		UNION ALL
		SELECT user_id, item_id, 'click' AS kind, created_at FROM clicks WHERE created_at >= $1
		ORDER BY created_at DESC
		LIMIT $2`
	rows, err := s.main.Query(ctx, q, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list interactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.InteractionEvent, 0, limit)
	for rows.Next() {
		var ev core.InteractionEvent
		var kind string
		if err := rows.Scan(&ev.UserID, &ev.ItemID, &kind, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan interaction: %w", err)
		}
		ev.Kind = core.InteractionKind(kind)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetUserLikes(ctx context.Context, userID string, limit int) ([]string, error) {
	const q = `
		SELECT item_id FROM likes
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return s.stringColumn(ctx, s.main, q, userID, limit)
}

func (s *PostgresStore) GetItemLikers(ctx context.Context, itemID string, limit int) ([]string, error) {
	const q = `
		SELECT DISTINCT user_id FROM likes
		WHERE item_id = $1
		LIMIT $2`
	return s.stringColumn(ctx, s.main, q, itemID, limit)
}

func (s *PostgresStore) GetItemFacts(ctx context.Context, itemIDs []string) (map[string]*core.ItemFacts, error) {
	if len(itemIDs) == 0 {
		return map[string]*core.ItemFacts{}, nil
	}
	const q = `
		SELECT id, geo_id, price, platform, COALESCE(categories, '{}'::jsonb),
		       status = 'in_stock', COALESCE(owner_id, ''), created_at
		FROM items
		WHERE id = ANY($1)`
	rows, err := s.main.Query(ctx, q, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("get item facts: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*core.ItemFacts, len(itemIDs))
	for rows.Next() {
		f := &core.ItemFacts{}
		var rawCats []byte
		if err := rows.Scan(&f.ID, &f.GeoID, &f.Price, &f.Platform, &rawCats, &f.InStock, &f.OwnerID, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan item facts: %w", err)
		}
		if err := json.Unmarshal(rawCats, &f.Categories); err != nil {
			f.Categories = map[string]string{}
		}
		out[f.ID] = f
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListActiveUsers(ctx context.Context, since time.Time, limit int) ([]string, error) {
	const q = `
		SELECT DISTINCT user_id FROM likes
		WHERE created_at >= $1
		ORDER BY user_id
		LIMIT $2`
	return s.stringColumn(ctx, s.main, q, since, limit)
}

// ========== RecStore（rec 库，读写） ==========

func (s *PostgresStore) ReplacePopularity(ctx context.Context, records []core.PopularityRecord) error {
	tx, err := s.rec.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin popularity replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM popular_items`); err != nil {
		return fmt.Errorf("clear popularity generation: %w", err)
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"popular_items"},
		[]string{"geo_id", "gender", "age_group", "category", "item_id", "popularity_score", "updated_at"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			return []any{r.Bucket.GeoID, r.Bucket.Gender, r.Bucket.AgeGroup, r.Bucket.Category, r.ItemID, r.Score, r.ComputedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy popularity generation: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) QueryPopularity(ctx context.Context, q core.PopularityQuery) ([]core.PopularityRecord, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 200
	}

	var sql string
	var args []any
	if q.OnlyRollup {
		sql = `
			SELECT geo_id, gender, age_group, category, item_id, popularity_score, updated_at
			FROM popular_items
			WHERE geo_id = $1 AND gender = 'any' AND age_group = 'any' AND category = 'any'
			ORDER BY popularity_score DESC, item_id ASC
			LIMIT $2`
		args = []any{q.GeoID, limit}
	} else {
		sql = `
			SELECT geo_id, gender, age_group, category, item_id, popularity_score, updated_at
			FROM popular_items
			WHERE geo_id = $1
			  AND ($2 = '' OR gender = $2 OR gender = 'any')
			  AND ($3 = '' OR age_group = $3 OR age_group = 'any')
			  AND ($4 = '' OR category = $4 OR category = 'any')
			ORDER BY popularity_score DESC, item_id ASC
			LIMIT $5`
		args = []any{q.GeoID, q.Gender, q.AgeGroup, q.Category, limit}
	}

	rows, err := s.rec.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query popularity: %w", err)
	}
	defer rows.Close()

	out := make([]core.PopularityRecord, 0, limit)
	for rows.Next() {
		var r core.PopularityRecord
		if err := rows.Scan(&r.Bucket.GeoID, &r.Bucket.Gender, &r.Bucket.AgeGroup, &r.Bucket.Category,
			&r.ItemID, &r.Score, &r.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan popularity: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetProfile(ctx context.Context, userID string) (*core.UserProfile, error) {
	const q = `
		SELECT user_id, preferred_categories, preferred_platforms, avg_price,
		       COALESCE(price_range_min, 0), COALESCE(price_range_max, 0),
		       interaction_count, last_interaction_at, updated_at
		FROM user_profiles
		WHERE user_id = $1`

	p := core.NewUserProfile(userID)
	var rawCats, rawPlats []byte
	err := s.rec.QueryRow(ctx, q, userID).Scan(
		&p.UserID, &rawCats, &rawPlats, &p.AvgPrice,
		&p.PriceRangeMin, &p.PriceRangeMax,
		&p.InteractionCount, &p.LastInteractionAt, &p.ComputedAt)
	if err == pgx.ErrNoRows {
		return nil, core.ErrStoreNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if err := json.Unmarshal(rawCats, &p.CategoryWeights); err != nil {
		p.CategoryWeights = map[string]float64{}
	}
	if err := json.Unmarshal(rawPlats, &p.PlatformWeights); err != nil {
		p.PlatformWeights = map[string]float64{}
	}
	return p, nil
}

func (s *PostgresStore) PutProfile(ctx context.Context, p *core.UserProfile) error {
	rawCats, err := json.Marshal(p.CategoryWeights)
	if err != nil {
		return fmt.Errorf("marshal category weights: %w", err)
	}
	rawPlats, err := json.Marshal(p.PlatformWeights)
	if err != nil {
		return fmt.Errorf("marshal platform weights: %w", err)
	}
	const q = `
		INSERT INTO user_profiles
		  (user_id, preferred_categories, preferred_platforms, avg_price,
		   price_range_min, price_range_max, interaction_count, last_interaction_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE SET
		  preferred_categories = EXCLUDED.preferred_categories,
		  preferred_platforms = EXCLUDED.preferred_platforms,
		  avg_price = EXCLUDED.avg_price,
		  price_range_min = EXCLUDED.price_range_min,
		  price_range_max = EXCLUDED.price_range_max,
		  interaction_count = EXCLUDED.interaction_count,
		  last_interaction_at = EXCLUDED.last_interaction_at,
		  updated_at = EXCLUDED.updated_at`
	_, err = s.rec.Exec(ctx, q, p.UserID, rawCats, rawPlats, p.AvgPrice,
		p.PriceRangeMin, p.PriceRangeMax, p.InteractionCount, p.LastInteractionAt, p.ComputedAt)
	if err != nil {
		return fmt.Errorf("put profile: %w", err)
	}
	return nil
}

func (s *PostgresStore) ReplaceItemSimilarities(ctx context.Context, edges []core.ItemSimilarityEdge) error {
	tx, err := s.rec.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin similarity replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM item_similarities`); err != nil {
		return fmt.Errorf("clear similarity generation: %w", err)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"item_similarities"},
		[]string{"item_a", "item_b", "similarity_score", "co_occurrence_count", "item_a_total_likes", "item_b_total_likes"},
		pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
			e := edges[i]
			return []any{e.ItemA, e.ItemB, e.Score, e.CoOccurrence, e.TotalLikesA, e.TotalLikesB}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy similarity generation: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) UpsertItemSimilarities(ctx context.Context, edges []core.ItemSimilarityEdge) error {
	const q = `
		INSERT INTO item_similarities
		  (item_a, item_b, similarity_score, co_occurrence_count, item_a_total_likes, item_b_total_likes)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (item_a, item_b) DO UPDATE SET
		  similarity_score = EXCLUDED.similarity_score,
		  co_occurrence_count = EXCLUDED.co_occurrence_count,
		  item_a_total_likes = EXCLUDED.item_a_total_likes,
		  item_b_total_likes = EXCLUDED.item_b_total_likes`
	batch := &pgx.Batch{}
	for _, e := range edges {
		batch.Queue(q, e.ItemA, e.ItemB, e.Score, e.CoOccurrence, e.TotalLikesA, e.TotalLikesB)
	}
	if err := s.rec.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert similarities: %w", err)
	}
	return nil
}

func (s *PostgresStore) ItemNeighbors(ctx context.Context, itemID string, limit int) ([]core.ItemSimilarityEdge, error) {
	const q = `
		SELECT item_a, item_b, similarity_score, co_occurrence_count, item_a_total_likes, item_b_total_likes
		FROM item_similarities
		WHERE item_a = $1 OR item_b = $1
		ORDER BY similarity_score DESC
		LIMIT $2`
	rows, err := s.rec.Query(ctx, q, itemID, limit)
	if err != nil {
		return nil, fmt.Errorf("item neighbors: %w", err)
	}
	defer rows.Close()

	out := make([]core.ItemSimilarityEdge, 0, limit)
	for rows.Next() {
		var e core.ItemSimilarityEdge
		if err := rows.Scan(&e.ItemA, &e.ItemB, &e.Score, &e.CoOccurrence, &e.TotalLikesA, &e.TotalLikesB); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) GetItemSimilarity(ctx context.Context, a, b string) (float64, error) {
	if a == b {
		return 1.0, nil
	}
	if a > b {
		a, b = b, a
	}
	const q = `SELECT similarity_score FROM item_similarities WHERE item_a = $1 AND item_b = $2`
	var score float64
	err := s.rec.QueryRow(ctx, q, a, b).Scan(&score)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get item similarity: %w", err)
	}
	return score, nil
}

func (s *PostgresStore) ReplaceUserSimilarities(ctx context.Context, userID string, edges []core.UserSimilarityEdge) error {
	tx, err := s.rec.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin user similarity replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM user_similarities WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clear user similarities: %w", err)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"user_similarities"},
		[]string{"user_id", "similar_user_id", "similarity_score"},
		pgx.CopyFromSlice(len(edges), func(i int) ([]any, error) {
			e := edges[i]
			return []any{userID, e.SimilarUserID, e.Score}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("copy user similarities: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) SimilarUsers(ctx context.Context, userID string, limit int) ([]core.UserSimilarityEdge, error) {
	const q = `
		SELECT user_id, similar_user_id, similarity_score
		FROM user_similarities
		WHERE user_id = $1
		ORDER BY similarity_score DESC
		LIMIT $2`
	rows, err := s.rec.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("similar users: %w", err)
	}
	defer rows.Close()

	out := make([]core.UserSimilarityEdge, 0, limit)
	for rows.Next() {
		var e core.UserSimilarityEdge
		if err := rows.Scan(&e.UserID, &e.SimilarUserID, &e.Score); err != nil {
			return nil, fmt.Errorf("scan user edge: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PostgresStore) stringColumn(ctx context.Context, pool *pgxpool.Pool, q string, args ...any) ([]string, error) {
	rows, err := pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// 确保 PostgresStore 实现了 core.FactStore 和 core.RecStore 接口
var _ core.FactStore = (*PostgresStore)(nil)
var _ core.RecStore = (*PostgresStore)(nil)
