// Package posts coordinates post writes: the provider confirms first, then the store is reconciled.
package posts

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/azure/carbon-dashboard/internal/models"
	"github.com/azure/carbon-dashboard/internal/provider"
	"github.com/azure/carbon-dashboard/internal/store"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

const (
	SaveRetryMessage    = "Failed to save post - please try again"
	SaveFailedMessage   = "Failed to save post"
	DeleteRetryMessage  = "Failed to delete post - please try again"
	DeleteFailedMessage = "Failed to delete post"
)

// Form holds the user-editable fields of a post
type Form struct {
	Title       string `json:"title" validate:"required"`
	Content     string `json:"content" validate:"required"`
	ResourceUID string `json:"resourceUid" validate:"required"`
	DateTime    string `json:"dateTime" validate:"required,datetime=2006-01"`
}

// Status tags the outcome of a write
type Status string

const (
	StatusSaved   Status = "saved"
	StatusRemoved Status = "removed"
	StatusInvalid Status = "invalid"
	StatusFailed  Status = "failed"
)

// SubmitResult is the outcome of Submit. Post is set only when Status is StatusSaved.
type SubmitResult struct {
	Status  Status
	Post    models.Post
	Message string
	Err     error
}

func (r SubmitResult) OK() bool { return r.Status == StatusSaved }

// RemoveResult is the outcome of Remove. Removed reports whether the provider actually had the post.
type RemoveResult struct {
	Status  Status
	Removed bool
	Message string
	Err     error
}

func (r RemoveResult) OK() bool { return r.Status == StatusRemoved }

// Coordinator runs create, update and delete of posts against the provider and the store
type Coordinator struct {
	provider provider.Provider
	store    *store.Store
	validate *validator.Validate
	timeout  time.Duration
}

// NewCoordinator creates a write coordinator. A positive timeout bounds every provider call.
func NewCoordinator(p provider.Provider, s *store.Store, timeout time.Duration) *Coordinator {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	return &Coordinator{
		provider: p,
		store:    s,
		validate: v,
		timeout:  timeout,
	}
}

// Submit creates a post, or replaces existingID when it is set. The store is only
// touched after the provider confirms the write.
func (c *Coordinator) Submit(ctx context.Context, form Form, existingID string) SubmitResult {
	if err := c.validate.Struct(form); err != nil {
		return SubmitResult{Status: StatusInvalid, Message: validationMessage(err), Err: err}
	}

	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	saved, err := c.provider.CreateOrUpdatePost(opCtx, models.PostInput{
		ID:          existingID,
		Title:       form.Title,
		ResourceUID: form.ResourceUID,
		DateTime:    form.DateTime,
		Content:     form.Content,
	})
	if err != nil {
		logrus.Errorf("Failed to save post %q: %v", existingID, err)
		return SubmitResult{Status: StatusFailed, Message: failureMessage(err, SaveRetryMessage, SaveFailedMessage), Err: err}
	}

	if existingID == "" {
		c.store.AddPost(saved)
		logrus.Infof("Created post %s", saved.ID)
		return SubmitResult{Status: StatusSaved, Post: saved}
	}

	if err := c.store.UpdatePost(saved); errors.Is(err, store.ErrPostNotFound) {
		// The provider created a fresh post for an id it did not know
		logrus.Warnf("Post %s was not in the store, appending confirmed post %s", existingID, saved.ID)
		c.store.AddPost(saved)
	}
	logrus.Infof("Updated post %s", saved.ID)
	return SubmitResult{Status: StatusSaved, Post: saved}
}

// Remove deletes a post. Confirmation is the caller's responsibility.
// On failure the store's posts are untouched and the error slot is set.
func (c *Coordinator) Remove(ctx context.Context, postID string) RemoveResult {
	opCtx, cancel := c.withTimeout(ctx)
	defer cancel()

	removed, err := c.provider.DeletePost(opCtx, postID)
	if err != nil {
		logrus.Errorf("Failed to delete post %s: %v", postID, err)
		msg := failureMessage(err, DeleteRetryMessage, DeleteFailedMessage)
		c.store.SetError(msg)
		return RemoveResult{Status: StatusFailed, Message: msg, Err: err}
	}

	c.store.DeletePost(postID)
	logrus.Infof("Deleted post %s (existed: %t)", postID, removed)
	return RemoveResult{Status: StatusRemoved, Removed: removed}
}

func (c *Coordinator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func failureMessage(err error, retry, fallback string) string {
	switch {
	case errors.Is(err, provider.ErrTransientWrite), errors.Is(err, context.DeadlineExceeded):
		return retry
	case err.Error() == "":
		return fallback
	default:
		return fmt.Sprintf("%s: %v", fallback, err)
	}
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	var problems []string
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			problems = append(problems, fmt.Sprintf("%s is required", fe.Field()))
		case "datetime":
			problems = append(problems, fmt.Sprintf("%s must be in YYYY-MM format", fe.Field()))
		default:
			problems = append(problems, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(problems, "; ")
}
