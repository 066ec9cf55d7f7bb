package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"lugares/internal/domain/entity"
	"lugares/internal/domain/repository"
	"lugares/internal/infrastructure/metrics"
	"lugares/pkg/errors"
)

const MaxCommentLength = 2000

// CommentUseCase keeps at most one live comment per author and restaurant.
//
// New comments get the id restaurantID_authorKey, so two first submissions
// by the same author land on the same document. Comments written by older
// clients under random ids are found by querying the restaurant's comments
// and matching the author, and are overwritten in place.
type CommentUseCase struct {
	store  repository.DocumentStore
	logger *slog.Logger
	now    func() time.Time
}

func NewCommentUseCase(store repository.DocumentStore, logger *slog.Logger) *CommentUseCase {
	return &CommentUseCase{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// commentIDEscaper keeps the separator out of both halves of a comment id,
// so distinct (restaurant, author) pairs never share one.
var commentIDEscaper = strings.NewReplacer("%", "%25", "_", "%5F", "/", "%2F")

// CommentID is the deterministic id of an author's comment on a restaurant.
func CommentID(restaurantID string, author entity.AuthorIdentity) string {
	return commentIDEscaper.Replace(restaurantID) + "_" + commentIDEscaper.Replace(author.Key())
}

func (uc *CommentUseCase) SubmitComment(ctx context.Context, restaurantID string, identity entity.AuthorIdentity, text string) (*entity.Comment, error) {
	comment, err := uc.submitComment(ctx, restaurantID, identity, text)
	metrics.RecordCommentOperation("submit", err)
	return comment, err
}

func (uc *CommentUseCase) submitComment(ctx context.Context, restaurantID string, identity entity.AuthorIdentity, text string) (*entity.Comment, error) {
	if !identity.IsAuthenticated() {
		return nil, errors.NotAuthenticated("sign in to comment")
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.InvalidComment("comment cannot be empty")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, errors.InvalidComment("comment is too long")
	}
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return nil, errors.RestaurantNotFound(restaurantID, nil)
	}

	if _, err := uc.store.Get(ctx, repository.RestaurantsCollection, restaurantID); err != nil {
		if isNotFound(err) {
			return nil, errors.RestaurantNotFound(restaurantID, nil)
		}
		return nil, storeError("could not load restaurant", err)
	}

	existing, err := uc.listComments(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	var mine []*entity.Comment
	for _, c := range existing {
		if identity.SameAuthor(c.Author()) {
			mine = append(mine, c)
		}
	}

	now := uc.now()
	comment := &entity.Comment{
		RestaurantID: restaurantID,
		Content:      text,
		AuthorID:     identity.ID,
		AuthorEmail:  identity.Email,
		PostedAt:     now,
	}

	if len(mine) == 0 {
		comment.ID = CommentID(restaurantID, identity)
		if err := uc.store.Set(ctx, repository.CommentsCollection, comment.ID, commentFields(comment), false); err != nil {
			return nil, storeError("could not save comment", err)
		}
		uc.logger.InfoContext(ctx, "comment created",
			slog.String("comment_id", comment.ID),
			slog.String("restaurant_id", restaurantID),
		)
		return comment, nil
	}

	// Newest first, so mine[0] is the one to keep.
	comment.ID = mine[0].ID
	if err := uc.store.Set(ctx, repository.CommentsCollection, comment.ID, commentFields(comment), true); err != nil {
		return nil, storeError("could not update comment", err)
	}

	for _, duplicate := range mine[1:] {
		if err := uc.store.Delete(ctx, repository.CommentsCollection, duplicate.ID); err != nil {
			uc.logger.WarnContext(ctx, "remove duplicate comment",
				slog.String("comment_id", duplicate.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	uc.logger.InfoContext(ctx, "comment updated",
		slog.String("comment_id", comment.ID),
		slog.String("restaurant_id", restaurantID),
		slog.Int("duplicates_removed", len(mine)-1),
	)
	return comment, nil
}

// DeleteComment removes a comment the requester owns. Deleting a comment
// that no longer exists succeeds.
func (uc *CommentUseCase) DeleteComment(ctx context.Context, commentID string, identity entity.AuthorIdentity) error {
	err := uc.deleteComment(ctx, commentID, identity)
	metrics.RecordCommentOperation("delete", err)
	return err
}

func (uc *CommentUseCase) deleteComment(ctx context.Context, commentID string, identity entity.AuthorIdentity) error {
	if !identity.IsAuthenticated() {
		return errors.NotAuthenticated("sign in to manage comments")
	}
	commentID = strings.TrimSpace(commentID)
	if commentID == "" {
		return errors.NotFound("comment", nil)
	}

	doc, err := uc.store.Get(ctx, repository.CommentsCollection, commentID)
	if err != nil {
		if isNotFound(err) {
			uc.logger.DebugContext(ctx, "comment already deleted", slog.String("comment_id", commentID))
			return nil
		}
		return storeError("could not load comment", err)
	}

	comment := commentFromDocument(doc)
	if !identity.Owns(comment.Author()) {
		return errors.NotOwner("you can only delete your own comments")
	}

	if err := uc.store.Delete(ctx, repository.CommentsCollection, commentID); err != nil {
		return storeError("could not delete comment", err)
	}

	uc.logger.InfoContext(ctx, "comment deleted",
		slog.String("comment_id", commentID),
		slog.String("restaurant_id", comment.RestaurantID),
	)
	return nil
}

// ListComments returns a restaurant's comments, newest first.
func (uc *CommentUseCase) ListComments(ctx context.Context, restaurantID string) ([]*entity.Comment, error) {
	restaurantID = strings.TrimSpace(restaurantID)
	if restaurantID == "" {
		return nil, errors.RestaurantNotFound(restaurantID, nil)
	}
	return uc.listComments(ctx, restaurantID)
}

func (uc *CommentUseCase) listComments(ctx context.Context, restaurantID string) ([]*entity.Comment, error) {
	docs, err := uc.store.Query(ctx, repository.CommentsCollection,
		repository.Eq(repository.FieldCommentRestaurant, repository.RestaurantRef(restaurantID)))
	if err != nil {
		return nil, storeError("could not load comments", err)
	}

	comments := make([]*entity.Comment, 0, len(docs))
	for _, doc := range docs {
		comments = append(comments, commentFromDocument(doc))
	}

	sort.SliceStable(comments, func(i, j int) bool {
		if !comments[i].PostedAt.Equal(comments[j].PostedAt) {
			return comments[i].PostedAt.After(comments[j].PostedAt)
		}
		return comments[i].ID < comments[j].ID
	})
	return comments, nil
}

func commentFields(c *entity.Comment) map[string]interface{} {
	fields := map[string]interface{}{
		repository.FieldCommentContent:    c.Content,
		repository.FieldCommentRestaurant: repository.RestaurantRef(c.RestaurantID),
		repository.FieldCommentDate:       c.PostedAt,
		repository.FieldCommentEmail:      c.AuthorEmail,
	}
	if c.AuthorID != "" {
		fields[repository.FieldCommentUserID] = c.AuthorID
	}
	return fields
}

func commentFromDocument(doc *repository.Document) *entity.Comment {
	c := &entity.Comment{ID: doc.ID}

	c.Content, _ = doc.Fields[repository.FieldCommentContent].(string)
	c.AuthorEmail, _ = doc.Fields[repository.FieldCommentEmail].(string)
	c.AuthorID, _ = doc.Fields[repository.FieldCommentUserID].(string)
	c.PostedAt, _ = doc.Fields[repository.FieldCommentDate].(time.Time)

	switch ref := doc.Fields[repository.FieldCommentRestaurant].(type) {
	case repository.Ref:
		c.RestaurantID = ref.ID
	case string:
		// Some rows carry the path instead of a reference.
		c.RestaurantID = strings.TrimPrefix(ref, repository.RestaurantsCollection+"/")
	}
	return c
}
