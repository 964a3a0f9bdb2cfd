package http

// AddFavorite godoc
// @Summary Add a product to favorites
// @Description Favorite a product by its external catalog id. The product is resolved from the local cache or fetched from the external catalog on a miss.
// @Tags Favorites
// @Security BearerAuth
// @Produce json
// @Param id path int true "External product ID"
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/favorites/{id} [post]
func (h *FavoriteHandler) AddFavoriteDoc() {}

// RemoveFavorite godoc
// @Summary Remove a product from favorites
// @Description Remove a favorited product by its external catalog id
// @Tags Favorites
// @Security BearerAuth
// @Produce json
// @Param id path int true "External product ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /api/favorites/{id} [delete]
func (h *FavoriteHandler) RemoveFavoriteDoc() {}

// ListFavorites godoc
// @Summary List favorited products
// @Description Get a stable, paginated list of the caller's favorited products
// @Tags Favorites
// @Security BearerAuth
// @Produce json
// @Param page query int false "Page number (1-based)"
// @Param page_size query int false "Page size (default 20)"
// @Success 200 {object} object{success=bool,data=object{products=array,total=int,page=int,page_size=int}}
// @Router /api/favorites [get]
func (h *FavoriteHandler) ListFavoritesDoc() {}
