package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	feeddb "github.com/nao1215/neptube/internal/feed/db"
	"github.com/nao1215/neptube/pkg/event"
	"github.com/nao1215/neptube/pkg/format"
	"github.com/nao1215/neptube/pkg/middleware"
	"github.com/nao1215/neptube/pkg/profile"
)

// コミュニティ投稿の種類。
const (
	postTypeText  = "text"
	postTypeImage = "image"
	postTypePoll  = "poll"
)

const (
	minPollOptions = 2
	maxPollOptions = 10
)

var (
	errPostNotFound   = errors.New("投稿が見つかりません")
	errOptionNotFound = errors.New("選択肢が見つかりません")
	errNotPoll        = errors.New("投票付きの投稿ではありません")
)

// pollOptionResponse は得票率付きの選択肢。
type pollOptionResponse struct {
	ID         string `json:"id"`
	Text       string `json:"text"`
	VoteCount  int64  `json:"vote_count"`
	Percentage int    `json:"percentage"`
}

// postResponse はフィードに表示するコミュニティ投稿。
type postResponse struct {
	ID            string               `json:"id"`
	Type          string               `json:"type"`
	Content       string               `json:"content"`
	ImageURL      string               `json:"image_url"`
	LikeCount     int64                `json:"like_count"`
	CommentCount  int64                `json:"comment_count"`
	CreatedAt     string               `json:"created_at"`
	CreatedAgo    string               `json:"created_ago"`
	User          profile.Profile      `json:"user"`
	PollOptions   []pollOptionResponse `json:"poll_options"`
	TotalVotes    int64                `json:"total_votes"`
	VotedOptionID *string              `json:"voted_option_id"`
}

// pollResults は選択肢ごとの得票率と総投票数を計算する。
// 得票率は四捨五入した整数で、投票が無い場合はすべて0になる。
func pollResults(options []feeddb.PollOption) ([]pollOptionResponse, int64) {
	var total int64
	for _, o := range options {
		total += o.VoteCount
	}

	out := make([]pollOptionResponse, 0, len(options))
	for _, o := range options {
		pct := 0
		if total > 0 {
			pct = int(math.Round(float64(o.VoteCount) / float64(total) * 100))
		}
		out = append(out, pollOptionResponse{
			ID:         o.ID,
			Text:       o.Text,
			VoteCount:  o.VoteCount,
			Percentage: pct,
		})
	}
	return out, total
}

func (s *Server) toPostResponse(p feeddb.CommunityPost, author profile.Profile, options []feeddb.PollOption, voted string) postResponse {
	results, total := pollResults(options)
	resp := postResponse{
		ID:           p.ID,
		Type:         p.Type,
		Content:      p.Content.String,
		ImageURL:     p.ImageUrl.String,
		LikeCount:    p.LikeCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		CreatedAgo:   format.Ago(p.CreatedAt, s.now()),
		User:         author,
		PollOptions:  results,
		TotalVotes:   total,
	}
	if voted != "" {
		resp.VotedOptionID = &voted
	}
	return resp
}

// handlePostsFeed は購読チャンネルのコミュニティ投稿を返すハンドラ。
// 投票付きの投稿には得票率と閲覧ユーザーの投票先を含める。
func (s *Server) handlePostsFeed() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		ctx := c.Request.Context()
		limit, err := parseLimit(c, defaultPostLimit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		channels, err := s.followedChannels(ctx, userID)
		if err != nil {
			s.logger.Error("購読チャンネル取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "フィードの取得に失敗しました"})
			return
		}
		if len(channels) == 0 {
			c.JSON(http.StatusOK, []postResponse{})
			return
		}

		posts, err := s.queries.ListFeedPosts(ctx, feeddb.ListFeedPostsParams{ChannelIds: channels, Limit: limit})
		if err != nil {
			s.logger.Error("投稿フィード取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フィードの取得に失敗しました"})
			return
		}

		options, voted, err := s.pollState(ctx, userID, posts)
		if err != nil {
			s.logger.Error("投票情報取得エラー", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フィードの取得に失敗しました"})
			return
		}

		authorIDs := make([]string, 0, len(posts))
		for _, p := range posts {
			authorIDs = append(authorIDs, p.UserID)
		}
		profiles, err := profile.Lookup(ctx, s.clients.gateway, uniqueIDs(authorIDs))
		if err != nil {
			s.logger.Error("投稿者情報取得エラー", zap.Error(err))
			c.JSON(http.StatusBadGateway, gin.H{"error": "フィードの取得に失敗しました"})
			return
		}

		resp := make([]postResponse, 0, len(posts))
		for _, p := range posts {
			resp = append(resp, s.toPostResponse(p, profile.Resolve(profiles, p.UserID), options[p.ID], voted[p.ID]))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// pollState は投票付き投稿の選択肢と、userIDの投票先を投稿IDごとにまとめて取得する。
func (s *Server) pollState(ctx context.Context, userID string, posts []feeddb.CommunityPost) (map[string][]feeddb.PollOption, map[string]string, error) {
	options := make(map[string][]feeddb.PollOption)
	voted := make(map[string]string)

	var pollIDs []string
	for _, p := range posts {
		if p.Type == postTypePoll {
			pollIDs = append(pollIDs, p.ID)
		}
	}
	if len(pollIDs) == 0 {
		return options, voted, nil
	}

	rows, err := s.queries.ListPollOptionsByPosts(ctx, pollIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("選択肢の取得に失敗: %w", err)
	}
	for _, o := range rows {
		options[o.PostID] = append(options[o.PostID], o)
	}

	votes, err := s.queries.ListVotesByUser(ctx, feeddb.ListVotesByUserParams{UserID: userID, PostIds: pollIDs})
	if err != nil {
		return nil, nil, fmt.Errorf("投票先の取得に失敗: %w", err)
	}
	for _, v := range votes {
		voted[v.PostID] = v.OptionID
	}
	return options, voted, nil
}

// createPostRequest はコミュニティ投稿のリクエストボディ。
type createPostRequest struct {
	Type        string   `json:"type" binding:"required,oneof=text image poll"`
	Content     string   `json:"content" binding:"max=5000"`
	ImageURL    string   `json:"image_url" binding:"omitempty,url"`
	PollOptions []string `json:"poll_options"`
}

// validate は投稿の種類ごとの必須項目を検証する。
func (r createPostRequest) validate() error {
	switch r.Type {
	case postTypeText:
		if strings.TrimSpace(r.Content) == "" {
			return errors.New("テキスト投稿には本文が必要です")
		}
	case postTypeImage:
		if r.ImageURL == "" {
			return errors.New("画像投稿には画像URLが必要です")
		}
	case postTypePoll:
		if len(r.PollOptions) < minPollOptions || len(r.PollOptions) > maxPollOptions {
			return fmt.Errorf("選択肢は%dから%d個で指定してください", minPollOptions, maxPollOptions)
		}
		for _, o := range r.PollOptions {
			if text := strings.TrimSpace(o); text == "" || len([]rune(text)) > 100 {
				return errors.New("選択肢は1から100文字で指定してください")
			}
		}
	}
	return nil
}

// handleCreatePost はコミュニティ投稿を作成するハンドラ。
// 投票付きの投稿は選択肢も同じトランザクションで作成する。
func (s *Server) handleCreatePost() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := middleware.GetIdentity(c)

		var req createPostRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です"})
			return
		}
		if err := req.validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		post, options, err := s.createPost(c.Request.Context(), id.UserID, req)
		if err != nil {
			s.logger.Error("投稿作成エラー", zap.String("user_id", id.UserID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の作成に失敗しました"})
			return
		}
		s.created.WithLabelValues(req.Type).Inc()

		author := profile.Profile{ID: id.UserID, Name: id.Name}
		c.JSON(http.StatusCreated, s.toPostResponse(post, author, options, ""))
	}
}

func (s *Server) createPost(ctx context.Context, userID string, req createPostRequest) (feeddb.CommunityPost, []feeddb.PollOption, error) {
	post := feeddb.CommunityPost{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      req.Type,
		Content:   nullString(req.Content),
		ImageUrl:  nullString(req.ImageURL),
		CreatedAt: s.now(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return post, nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	q := s.queries.WithTx(tx)

	err = q.CreatePost(ctx, feeddb.CreatePostParams{
		ID:        post.ID,
		UserID:    post.UserID,
		Type:      post.Type,
		Content:   post.Content,
		ImageUrl:  post.ImageUrl,
		CreatedAt: post.CreatedAt,
	})
	if err != nil {
		return post, nil, fmt.Errorf("投稿の保存に失敗: %w", err)
	}

	var options []feeddb.PollOption
	if req.Type == postTypePoll {
		for i, text := range req.PollOptions {
			o := feeddb.PollOption{
				ID:       uuid.New().String(),
				PostID:   post.ID,
				Text:     strings.TrimSpace(text),
				Position: int64(i),
			}
			if err := q.CreatePollOption(ctx, feeddb.CreatePollOptionParams{
				ID:       o.ID,
				PostID:   o.PostID,
				Text:     o.Text,
				Position: o.Position,
			}); err != nil {
				return post, nil, fmt.Errorf("選択肢の保存に失敗: %w", err)
			}
			options = append(options, o)
		}
	}

	if err := tx.Commit(); err != nil {
		return post, nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return post, options, nil
}

// voteRequest は投票のリクエストボディ。
type voteRequest struct {
	OptionID string `json:"option_id" binding:"required"`
}

// handleVote は投票付き投稿に投票するハンドラ。
// 1ユーザー1票で、別の選択肢に投票し直すと票が移動する。
func (s *Server) handleVote() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		postID := c.Param("id")
		ctx := c.Request.Context()

		var req voteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "option_idを指定してください"})
			return
		}

		action, err := s.vote(ctx, postID, userID, req.OptionID)
		switch {
		case errors.Is(err, errPostNotFound), errors.Is(err, errOptionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		case errors.Is(err, errNotPoll):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case err != nil:
			s.logger.Error("投票エラー", zap.String("post_id", postID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投票に失敗しました"})
			return
		}

		if action != "" {
			s.votes.WithLabelValues(action).Inc()
			s.events.Emit(ctx, postID, event.AggregateTypePost, event.TypePollVoted, event.PollVotedData{
				UserID:   userID,
				OptionID: req.OptionID,
			})
		}

		options, err := s.queries.ListPollOptionsByPosts(ctx, []string{postID})
		if err != nil {
			s.logger.Error("選択肢取得エラー", zap.String("post_id", postID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "投票結果の取得に失敗しました"})
			return
		}
		results, total := pollResults(options)
		c.JSON(http.StatusOK, gin.H{
			"poll_options":    results,
			"total_votes":     total,
			"voted_option_id": req.OptionID,
		})
	}
}

// vote は投票を記録し、行った操作をnewまたはchangedで返す。
// 同じ選択肢への再投票は何もせず空文字を返す。
func (s *Server) vote(ctx context.Context, postID, userID, optionID string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	q := s.queries.WithTx(tx)

	post, err := q.GetPost(ctx, postID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errPostNotFound
	}
	if err != nil {
		return "", fmt.Errorf("投稿の取得に失敗: %w", err)
	}
	if post.Type != postTypePoll {
		return "", errNotPoll
	}

	option, err := q.GetPollOption(ctx, optionID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && option.PostID != postID) {
		return "", errOptionNotFound
	}
	if err != nil {
		return "", fmt.Errorf("選択肢の取得に失敗: %w", err)
	}

	action := "new"
	existing, err := q.GetPollVote(ctx, feeddb.GetPollVoteParams{PostID: postID, UserID: userID})
	switch {
	case err == nil && existing.OptionID == optionID:
		return "", nil
	case err == nil:
		action = "changed"
		if err := q.UpdatePollVote(ctx, feeddb.UpdatePollVoteParams{
			OptionID:  optionID,
			CreatedAt: s.now(),
			PostID:    postID,
			UserID:    userID,
		}); err != nil {
			return "", fmt.Errorf("投票の更新に失敗: %w", err)
		}
		if err := q.UpdateOptionVoteCount(ctx, feeddb.UpdateOptionVoteCountParams{VoteCount: -1, ID: existing.OptionID}); err != nil {
			return "", fmt.Errorf("得票数の更新に失敗: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		if err := q.CreatePollVote(ctx, feeddb.CreatePollVoteParams{
			PostID:    postID,
			UserID:    userID,
			OptionID:  optionID,
			CreatedAt: s.now(),
		}); err != nil {
			return "", fmt.Errorf("投票の保存に失敗: %w", err)
		}
	default:
		return "", fmt.Errorf("投票の取得に失敗: %w", err)
	}

	if err := q.UpdateOptionVoteCount(ctx, feeddb.UpdateOptionVoteCountParams{VoteCount: 1, ID: optionID}); err != nil {
		return "", fmt.Errorf("得票数の更新に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("コミットに失敗: %w", err)
	}
	return action, nil
}

// handleToggleLike は投稿のいいねを切り替えるハンドラ。
func (s *Server) handleToggleLike() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := middleware.GetUserID(c)
		postID := c.Param("id")

		liked, count, err := s.toggleLike(c.Request.Context(), postID, userID)
		if errors.Is(err, errPostNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			s.logger.Error("いいね更新エラー", zap.String("post_id", postID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "いいねの更新に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"liked": liked, "like_count": count})
	}
}

func (s *Server) toggleLike(ctx context.Context, postID, userID string) (bool, int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, 0, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	q := s.queries.WithTx(tx)

	if _, err := q.GetPost(ctx, postID); errors.Is(err, sql.ErrNoRows) {
		return false, 0, errPostNotFound
	} else if err != nil {
		return false, 0, fmt.Errorf("投稿の取得に失敗: %w", err)
	}

	liked := true
	delta := int64(1)
	_, err = q.GetPostLike(ctx, feeddb.GetPostLikeParams{PostID: postID, UserID: userID})
	switch {
	case err == nil:
		liked, delta = false, -1
		if err := q.DeletePostLike(ctx, feeddb.DeletePostLikeParams{PostID: postID, UserID: userID}); err != nil {
			return false, 0, fmt.Errorf("いいねの削除に失敗: %w", err)
		}
	case errors.Is(err, sql.ErrNoRows):
		if err := q.CreatePostLike(ctx, feeddb.CreatePostLikeParams{PostID: postID, UserID: userID, CreatedAt: s.now()}); err != nil {
			return false, 0, fmt.Errorf("いいねの保存に失敗: %w", err)
		}
	default:
		return false, 0, fmt.Errorf("いいねの取得に失敗: %w", err)
	}

	if err := q.UpdatePostLikeCount(ctx, feeddb.UpdatePostLikeCountParams{LikeCount: delta, ID: postID}); err != nil {
		return false, 0, fmt.Errorf("いいね数の更新に失敗: %w", err)
	}
	post, err := q.GetPost(ctx, postID)
	if err != nil {
		return false, 0, fmt.Errorf("投稿の取得に失敗: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, 0, fmt.Errorf("コミットに失敗: %w", err)
	}
	return liked, post.LikeCount, nil
}
