package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/angeloszaimis/coe/internal/users"
)

// listUsers handles GET /api/users
func (s *Server) listUsers(c *gin.Context) {
	list, err := s.users.List(c.Request.Context())
	if err != nil {
		s.failure(c, "Failed to fetch users", err)
		return
	}
	if list == nil {
		list = []users.User{}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"users":   list,
		"total":   len(list),
	})
}

// createUser handles POST /api/users
func (s *Server) createUser(c *gin.Context) {
	var req users.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	user, err := s.users.Create(c.Request.Context(), req)
	if err != nil {
		if !s.userError(c, err) {
			s.failure(c, "Failed to create user", err)
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"user":    user,
		"message": "User created successfully",
	})
}

// resetUsers handles DELETE /api/users
func (s *Server) resetUsers(c *gin.Context) {
	if err := s.users.Reset(c.Request.Context()); err != nil {
		s.failure(c, "Failed to delete users", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "All users deleted",
	})
}

// getUser handles GET /api/users/:id
func (s *Server) getUser(c *gin.Context) {
	user, err := s.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if !s.userError(c, err) {
			s.failure(c, "Failed to fetch user", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
	})
}

// updateUser handles PUT and PATCH /api/users/:id
func (s *Server) updateUser(c *gin.Context) {
	var req users.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		s.errorResponse(c, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	user, err := s.users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		if !s.userError(c, err) {
			s.failure(c, "Failed to update user", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
		"message": "User updated successfully",
	})
}

// deleteUser handles DELETE /api/users/:id
func (s *Server) deleteUser(c *gin.Context) {
	if err := s.users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		if !s.userError(c, err) {
			s.failure(c, "Failed to delete user", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "User deleted",
	})
}
