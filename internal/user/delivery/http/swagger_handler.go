package http

// Register godoc
// @Summary Register a new user
// @Description Create a customer account with name, email and password
// @Tags Auth
// @Accept json
// @Produce json
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /auth/register [post]
func (h *UserHandler) RegisterDoc() {}

// Login godoc
// @Summary Log in
// @Description Authenticate with email and password, returns a JWT
// @Tags Auth
// @Accept json
// @Produce json
// @Success 200 {object} object{success=bool,data=object{token=string,user=object}}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /auth/login [post]
func (h *UserHandler) LoginDoc() {}

// Me godoc
// @Summary Current user profile
// @Description Get the authenticated user's profile
// @Tags Users
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=object}
// @Failure 401 {object} object{success=bool,error=string}
// @Router /users/me [get]
func (h *UserHandler) MeDoc() {}

// ListUsers godoc
// @Summary List users
// @Description Get all users with pagination (Admin only)
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=object{users=array,total=int}}
// @Router /admin/users [get]
func (h *UserHandler) ListUsersDoc() {}

// CreateUser godoc
// @Summary Create a user
// @Description Create a user with an explicit role (Admin only)
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Success 201 {object} object{success=bool,message=string,data=object}
// @Failure 400 {object} object{success=bool,error=string}
// @Failure 409 {object} object{success=bool,error=string}
// @Router /admin/users [post]
func (h *UserHandler) CreateUserDoc() {}

// UpdateUser godoc
// @Summary Update a user
// @Description Update a user's name, email or password (Admin only)
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /admin/users/{id} [put]
func (h *UserHandler) UpdateUserDoc() {}

// DeleteUser godoc
// @Summary Delete a user
// @Description Soft delete a user by ID (Admin only)
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 404 {object} object{success=bool,error=string}
// @Router /admin/users/{id} [delete]
func (h *UserHandler) DeleteUserDoc() {}
