package service

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/funny-ai-box/paraluxflow/internal/models"
	"github.com/funny-ai-box/paraluxflow/internal/repository"
	"github.com/funny-ai-box/paraluxflow/pkg/errs"
	"github.com/funny-ai-box/paraluxflow/pkg/util"
)

// ArticleCrawlService hands pending articles to remote crawl workers and
// receives their content back. The per-article lock keeps two workers off
// the same article; a stale lock is reclaimable so a crashed worker never
// blocks one permanently.
type ArticleCrawlService struct {
	articles         repository.ArticleRepository
	staleLockTimeout time.Duration
	logger           *zap.Logger
}

func NewArticleCrawlService(articles repository.ArticleRepository, staleLockTimeout time.Duration, logger *zap.Logger) *ArticleCrawlService {
	if staleLockTimeout <= 0 {
		staleLockTimeout = 10 * time.Minute
	}
	return &ArticleCrawlService{
		articles:         articles,
		staleLockTimeout: staleLockTimeout,
		logger:           logger,
	}
}

// GetPendingArticles lists crawlable articles for workers to pick from.
func (s *ArticleCrawlService) GetPendingArticles(limit int) ([]models.Article, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.articles.ListPending(limit, s.staleBefore())
}

// ClaimArticle locks an article for one worker.
func (s *ArticleCrawlService) ClaimArticle(articleID uint, crawlerID string) (*models.Article, error) {
	if crawlerID == "" {
		return nil, errs.Validation("crawler_id is required")
	}

	claimed, err := s.articles.Claim(articleID, crawlerID, s.staleBefore(), time.Now())
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, errs.NotFound("article not found or already locked")
	}

	s.logger.Info("Article claimed",
		zap.Uint("article_id", articleID), zap.String("crawler_id", crawlerID))
	return s.articles.GetArticle(articleID)
}

// SubmitArticleContent stores fetched content, links it to the article and
// marks it ready. Only the claiming worker may submit.
func (s *ArticleCrawlService) SubmitArticleContent(articleID uint, crawlerID, htmlContent, textContent string) error {
	if htmlContent == "" {
		return errs.Validation("html_content is required")
	}
	if textContent == "" {
		textContent = util.StripHTML(htmlContent)
	}

	content := &models.ArticleContent{
		HTMLContent: htmlContent,
		TextContent: textContent,
	}
	if err := s.articles.SaveContent(articleID, crawlerID, content); err != nil {
		return err
	}

	s.logger.Info("Article content stored",
		zap.Uint("article_id", articleID),
		zap.String("crawler_id", crawlerID),
		zap.Int("html_bytes", len(htmlContent)))
	return nil
}

// ReportArticleFailure unlocks the article and counts the attempt; it stays
// pending until the retry budget is exhausted.
func (s *ArticleCrawlService) ReportArticleFailure(articleID uint, crawlerID, errMsg string) error {
	if errMsg == "" {
		errMsg = fmt.Sprintf("crawler %s reported failure", crawlerID)
	}
	if err := s.articles.MarkFailure(articleID, crawlerID, errMsg); err != nil {
		return err
	}

	s.logger.Warn("Article crawl failed",
		zap.Uint("article_id", articleID),
		zap.String("crawler_id", crawlerID),
		zap.String("error", errMsg))
	return nil
}

func (s *ArticleCrawlService) staleBefore() time.Time {
	return time.Now().Add(-s.staleLockTimeout)
}
