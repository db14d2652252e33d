package chromemdb

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"exam-rag/internal/config"
	"exam-rag/internal/helper"
	"exam-rag/internal/models"
	"exam-rag/internal/rag"
)

// runeEmbed hashes runes into a small vector so tests need no embedding service.
func runeEmbed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 16)
	v[0] = 1
	for _, r := range text {
		v[int(r)%15+1]++
	}
	return v, nil
}

var passages = []models.PassageChunk{
	{ID: "1", Text: "壬戌之秋，七月既望，蘇子與客泛舟遊於赤壁之下。", Title: "赤壁賦", Era: "唐宋", Source: "赤壁賦", ChunkID: 0},
	{ID: "2", Text: "清風徐來，水波不興。舉酒屬客，誦明月之詩。", Title: "赤壁賦", Era: "唐宋", Source: "赤壁賦", ChunkID: 1},
	{ID: "3", Text: "古之學者必有師。師者，所以傳道、受業、解惑也。", Title: "師說", Era: "唐宋", Source: "師說", ChunkID: 0},
}

type ChromemSuite struct {
	suite.Suite
	ctx context.Context
	cfg config.RAGConfig
}

func TestChromemSuite(t *testing.T) {
	suite.Run(t, new(ChromemSuite))
}

func (s *ChromemSuite) SetupTest() {
	s.ctx = context.Background()
	s.cfg = config.RAGConfig{
		DBPath:         filepath.Join(s.T().TempDir(), "chroma_db"),
		CollectionName: "classics",
	}
}

func (s *ChromemSuite) build() *VectorDBManager {
	m, err := NewVectorDBManager(s.cfg.DBPath, s.cfg.CollectionName, false, false, s.cfg.EncryptionKey, runeEmbed)
	s.Require().NoError(err)
	_, err = m.GetOrCreateCollection(map[string]string{models.MetaEmbeddingModel: "rune"})
	s.Require().NoError(err)
	s.Require().NoError(m.CreateDocs(s.ctx, passages, map[string]string{models.MetaEmbeddingModel: "rune"}))
	return m
}

func (s *ChromemSuite) TestSimilaritySearchFiltersOnTitle() {
	m := s.build()

	got, err := m.SimilaritySearch(s.ctx, "赤壁賦", 2, map[string]string{models.MetaTitle: "赤壁賦"})
	s.Require().NoError(err)
	s.Len(got, 2)
	for _, p := range got {
		s.Equal("赤壁賦", p.Title)
		s.Equal("唐宋", p.Era)
		s.Equal("rune", p.EmbeddingModel)
	}
}

func (s *ChromemSuite) TestSimilaritySearchFewerThanK() {
	m := s.build()

	got, err := m.SimilaritySearch(s.ctx, "師說", 2, map[string]string{models.MetaTitle: "師說"})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal("3", got[0].ID)

	got, err = m.SimilaritySearch(s.ctx, "出師表", 2, map[string]string{models.MetaTitle: "出師表"})
	s.Require().NoError(err)
	s.Empty(got)
}

func (s *ChromemSuite) TestSimilaritySearchClampsK() {
	m := s.build()

	got, err := m.SimilaritySearch(s.ctx, "赤壁", 10, nil)
	s.Require().NoError(err)
	s.Len(got, 3)
}

func (s *ChromemSuite) TestStoreExistsDoesNotCreate() {
	store := NewStore(s.cfg, runeEmbed)

	ok, err := store.Exists(s.ctx)
	s.Require().NoError(err)
	s.False(ok)

	exists, err := helper.PathExists(s.cfg.DBPath)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ChromemSuite) TestStoreOpenReloadsFromDisk() {
	s.build()
	store := NewStore(s.cfg, runeEmbed)

	ok, err := store.Exists(s.ctx)
	s.Require().NoError(err)
	s.True(ok)

	searcher, err := store.Open(s.ctx)
	s.Require().NoError(err)
	got, err := searcher.SimilaritySearch(s.ctx, "赤壁賦", 2, map[string]string{models.MetaTitle: "赤壁賦"})
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *ChromemSuite) TestStoreOpenEmptyDirectory() {
	s.Require().NoError(os.MkdirAll(s.cfg.DBPath, 0o755))

	searcher, err := NewStore(s.cfg, runeEmbed).Open(s.ctx)
	s.Require().NoError(err)
	got, err := searcher.SimilaritySearch(s.ctx, "赤壁賦", 2, map[string]string{models.MetaTitle: "赤壁賦"})
	s.NoError(err)
	s.Empty(got)
}

func (s *ChromemSuite) TestDeleteCollection() {
	m := s.build()
	s.Require().NoError(m.DeleteCollection())
	s.Equal(0, m.Count())
	s.ErrorIs(m.OpenCollection(), ErrCollectionNotFound)
}

func (s *ChromemSuite) TestStoreRebuildKeepsOldStoreOnEmbedFailure() {
	s.Require().NoError(NewStore(s.cfg, runeEmbed).Rebuild(s.ctx, passages))

	down := func(context.Context, string) ([]float32, error) {
		return nil, errors.New("embedding service unavailable")
	}
	err := NewStore(s.cfg, down).Rebuild(s.ctx, passages)
	s.Require().ErrorContains(err, "embedding service unavailable")

	staging, err := helper.PathExists(s.cfg.DBPath + ".building")
	s.Require().NoError(err)
	s.False(staging)

	searcher, err := NewStore(s.cfg, runeEmbed).Open(s.ctx)
	s.Require().NoError(err)
	got, err := searcher.SimilaritySearch(s.ctx, "赤壁賦", 2, map[string]string{models.MetaTitle: "赤壁賦"})
	s.Require().NoError(err)
	s.Len(got, 2)
}

func (s *ChromemSuite) TestStoreExportNeverBuilt() {
	_, err := NewStore(s.cfg, runeEmbed).Export(s.ctx, "")
	s.ErrorIs(err, rag.ErrStoreUnavailable)

	exists, err := helper.PathExists(s.cfg.DBPath)
	s.Require().NoError(err)
	s.False(exists)
}

func (s *ChromemSuite) TestStoreExport() {
	store := NewStore(s.cfg, runeEmbed)
	s.Require().NoError(store.Rebuild(s.ctx, passages))

	file, err := store.Export(s.ctx, "")
	s.Require().NoError(err)
	s.Equal(filepath.Join(filepath.Dir(s.cfg.DBPath), "classics.gob"), file)
	exists, err := helper.PathExists(file)
	s.Require().NoError(err)
	s.True(exists)
}

func TestExportImportEncrypted(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := "0123456789abcdef0123456789abcdef"

	src, err := NewVectorDBManager(filepath.Join(dir, "chroma_db"), "classics", false, true, key, runeEmbed)
	require.NoError(t, err)
	_, err = src.GetOrCreateCollection(nil)
	require.NoError(t, err)
	require.NoError(t, src.CreateDocs(ctx, passages, nil))

	file := src.ExportPath()
	assert.Equal(t, filepath.Join(dir, "classics.gob.gz.enc"), file)
	require.NoError(t, src.Export(""))

	dst, err := NewVectorDBManager("", "classics", true, true, key, runeEmbed)
	require.NoError(t, err)
	require.NoError(t, dst.Import(file))
	assert.Equal(t, 3, dst.Count())

	wrong, err := NewVectorDBManager("", "classics", true, true, "ffffffffffffffffffffffffffffffff", runeEmbed)
	require.NoError(t, err)
	assert.Error(t, wrong.Import(file))
}
