package http

// ListProducts godoc
// @Summary List cached products
// @Description Get the locally cached product catalog with pagination
// @Tags Products
// @Produce json
// @Param limit query int false "Limit"
// @Param offset query int false "Offset"
// @Success 200 {object} object{success=bool,data=object{products=array,total=int,limit=int,offset=int}}
// @Router /api/products [get]
func (h *ProductHandler) ListProductsDoc() {}

// GetProduct godoc
// @Summary Get product by external ID
// @Description Get a product by its external catalog id; fetched and cached on a local miss
// @Tags Products
// @Produce json
// @Param id path int true "External product ID"
// @Success 200 {object} object{success=bool,data=object}
// @Failure 404 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /api/products/{id} [get]
func (h *ProductHandler) GetProductDoc() {}

// TriggerSync godoc
// @Summary Trigger catalog reconciliation
// @Description Run a full diff-and-repair pass against the external catalog (Admin only)
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,message=string,data=object}
// @Failure 409 {object} object{success=bool,error=string}
// @Failure 502 {object} object{success=bool,error=string}
// @Router /admin/sync [post]
func (h *ProductHandler) TriggerSyncDoc() {}

// SyncStatus godoc
// @Summary Reconciliation status
// @Description Get the reconciliation job state and last run outcome (Admin only)
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} object{success=bool,data=object{state=string,last_run=object}}
// @Router /admin/sync/status [get]
func (h *ProductHandler) SyncStatusDoc() {}

// HealthCheck godoc
// @Summary Health check
// @Description Check service health and database connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} object{success=bool,message=string}
// @Failure 503 {object} object{success=bool,error=string}
// @Router /health [get]
func (h *ProductHandler) HealthCheckDoc() {}
