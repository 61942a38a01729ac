package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/m1z23r/drift/pkg/drift"

	"github.com/nbhub/projects-api/internal/hub"
	"github.com/nbhub/projects-api/internal/middleware"
	"github.com/nbhub/projects-api/internal/models"
	"github.com/nbhub/projects-api/internal/services"
	"github.com/nbhub/projects-api/pkg/dto"
)

type LibraryHandler struct {
	projectService ProjectServiceInterface
	tagService     TagServiceInterface
	emailService   EmailServiceInterface
	hubClient      HubClientInterface
	notifyEmail    string
}

func NewLibraryHandler(
	projectService ProjectServiceInterface,
	tagService TagServiceInterface,
	emailService EmailServiceInterface,
	hubClient HubClientInterface,
	notifyEmail string,
) *LibraryHandler {
	return &LibraryHandler{
		projectService: projectService,
		tagService:     tagService,
		emailService:   emailService,
		hubClient:      hubClient,
		notifyEmail:    notifyEmail,
	}
}

// List returns the published library. Soft-deleted projects are included
// only for admins asking for them via ?deleted=true; ?sort=copied orders by
// copy count.
func (h *LibraryHandler) List(c *drift.Context) {
	ctx := context.Background()

	includeDeleted := c.QueryParam("deleted") == "true" && middleware.IsAdmin(c)
	sortByCopied := c.QueryParam("sort") == "copied"

	projects, err := h.projectService.All(ctx, includeDeleted, sortByCopied)
	if err != nil {
		c.InternalServerError("failed to list projects")
		return
	}

	pinned, err := h.tagService.AllPinned(ctx)
	if err != nil {
		c.InternalServerError("failed to load pinned tags")
		return
	}
	protected, err := h.tagService.AllProtected(ctx)
	if err != nil {
		c.InternalServerError("failed to load protected tags")
		return
	}

	_ = c.JSON(http.StatusOK, dto.LibraryResponse{
		Projects:  dto.NewProjectResponses(projects),
		Pinned:    tagLabels(pinned),
		Protected: tagLabels(protected),
	})
}

// Publish creates a library entry for the caller's workspace directory. If
// the same (owner, dir) was published before and since deleted, the request
// becomes a republish: the old entry is revived with the submitted metadata
// and its history intact.
func (h *LibraryHandler) Publish(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	var req dto.PublishProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	req.Dir = strings.TrimSpace(req.Dir)

	ctx := context.Background()

	if existing, err := h.projectService.GetByOwnerDir(ctx, username, req.Dir); err == nil && existing.Deleted {
		merge := services.ProjectMerge{
			Image:       &req.Image,
			Name:        &req.Name,
			Description: &req.Description,
			Author:      &req.Author,
			Quality:     &req.Quality,
			Citation:    &req.Citation,
			Tags:        &req.Tags,
		}
		comment := fmt.Sprintf("Restored version of %s", req.Name)
		merge.Comment = &comment

		project, err := h.projectService.Update(ctx, existing.ID, merge, username, middleware.IsAdmin(c))
		if err != nil {
			h.respondProjectError(c, err)
			return
		}
		_ = c.JSON(http.StatusOK, dto.NewProjectResponse(project))
		return
	}

	spec := services.ProjectSpec{
		Owner:       username,
		Dir:         req.Dir,
		Image:       req.Image,
		Name:        req.Name,
		Description: req.Description,
		Author:      req.Author,
		Quality:     req.Quality,
		Citation:    req.Citation,
		Tags:        req.Tags,
	}

	project, err := h.projectService.Create(ctx, spec, username, middleware.IsAdmin(c))
	if err != nil {
		h.respondProjectError(c, err)
		return
	}

	h.notifyPublished(project)

	_ = c.JSON(http.StatusCreated, dto.NewProjectResponse(project))
}

// Get returns one library entry; ?files=true attaches the artifact listing.
func (h *LibraryHandler) Get(c *drift.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid project id")
		return
	}

	project, err := h.projectService.Get(context.Background(), projectID)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}

	resp := dto.NewProjectResponse(project)
	if c.QueryParam("files") == "true" && !project.Deleted {
		files, err := h.projectService.ListFiles(project)
		if err != nil {
			c.InternalServerError("failed to list project files")
			return
		}
		resp.Files = files
	}

	_ = c.JSON(http.StatusOK, resp)
}

func (h *LibraryHandler) Update(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid project id")
		return
	}

	ctx := context.Background()

	project, err := h.projectService.Get(ctx, projectID)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	if project.Owner != username && !middleware.IsAdmin(c) {
		c.Forbidden("only the project owner can update it")
		return
	}

	var req dto.UpdateProjectRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	merge := services.ProjectMerge{
		Image:       req.Image,
		Name:        req.Name,
		Description: req.Description,
		Author:      req.Author,
		Quality:     req.Quality,
		Citation:    req.Citation,
		Tags:        req.Tags,
		Comment:     req.Comment,
	}

	updated, err := h.projectService.Update(ctx, projectID, merge, username, middleware.IsAdmin(c))
	if err != nil {
		h.respondProjectError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, dto.NewProjectResponse(updated))
}

func (h *LibraryHandler) Delete(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid project id")
		return
	}

	ctx := context.Background()

	project, err := h.projectService.Get(ctx, projectID)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	if project.Owner != username && !middleware.IsAdmin(c) {
		c.Forbidden("only the project owner can delete it")
		return
	}

	deleted, err := h.projectService.Delete(ctx, projectID)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, dto.NewProjectResponse(deleted))
}

// Copy unpacks the project into the caller's workspace under a
// collision-free directory and asks the hub to start a named server for it.
func (h *LibraryHandler) Copy(c *drift.Context) {
	username := middleware.GetUsername(c)
	if username == "" {
		c.Unauthorized("not authenticated")
		return
	}

	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid project id")
		return
	}

	ctx := context.Background()

	result, err := h.projectService.Copy(ctx, projectID, username)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}

	name := result.Project.Name
	if result.Suffix > 0 {
		name = fmt.Sprintf("%s (copy %d)", name, result.Suffix)
	}

	serverURL, err := h.hubClient.CreateNamedServer(ctx, username, result.Dir, hub.ServerSpec{
		Image:       result.Project.Image,
		Name:        name,
		Description: result.Project.Description,
	})
	if err != nil {
		log.Printf("Failed to provision named server for %s/%s: %v", username, result.Dir, err)
	}

	_ = c.JSON(http.StatusCreated, dto.CopyProjectResponse{
		ID:   result.Project.ID,
		Slug: result.Dir,
		Name: name,
		URL:  serverURL,
	})
}

// Download streams the project's zip artifact.
func (h *LibraryHandler) Download(c *drift.Context) {
	projectID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.BadRequest("invalid project id")
		return
	}

	project, err := h.projectService.Get(context.Background(), projectID)
	if err != nil {
		h.respondProjectError(c, err)
		return
	}
	if project.Deleted {
		c.BadRequest("project has been deleted")
		return
	}

	c.Response.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", project.Dir+".zip"))
	http.ServeFile(c.Response, c.Request, h.projectService.ZipPath(project.Owner, project.Dir))
	c.Abort()
}

func (h *LibraryHandler) notifyPublished(project *models.Project) {
	if h.notifyEmail == "" || !h.emailService.IsConfigured() {
		return
	}
	if err := h.emailService.SendPublished(h.notifyEmail, project.ID, project.Name); err != nil {
		log.Printf("Failed to send publish notification for %s: %v", project.ID, err)
	}
}

func (h *LibraryHandler) respondProjectError(c *drift.Context, err error) {
	var specErr *services.SpecError
	switch {
	case errors.As(err, &specErr):
		c.BadRequest(specErr.Error())
	case errors.Is(err, services.ErrProjectExists):
		c.BadRequest("a project with this directory is already published")
	case errors.Is(err, services.ErrProjectNotFound):
		c.BadRequest("project id does not exist")
	default:
		c.InternalServerError("project operation failed")
	}
}

func tagLabels(tags []models.Tag) []string {
	labels := make([]string, len(tags))
	for i, t := range tags {
		labels[i] = t.Label
	}
	return labels
}
