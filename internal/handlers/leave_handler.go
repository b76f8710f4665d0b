package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "leavedesk/internal/errors"
	"leavedesk/internal/pagination"
	"leavedesk/internal/services"
	"leavedesk/internal/storage"
)

// multipartOverhead is the body allowance on top of the receipt itself for
// the other form fields and multipart framing.
const multipartOverhead = 1 << 20

// LeaveHandler handles leave requests and records.
type LeaveHandler struct {
	leaveService   services.LeaveServicer
	auditService   services.AuditServicer
	maxUploadBytes int64
}

// NewLeaveHandler creates a new LeaveHandler.
func NewLeaveHandler(leaveService services.LeaveServicer, auditService services.AuditServicer, maxUploadBytes int64) *LeaveHandler {
	return &LeaveHandler{leaveService: leaveService, auditService: auditService, maxUploadBytes: maxUploadBytes}
}

// SubmitLeaveRequest represents the leave form. half_day is a checkbox: it is
// set when present, unless its value is "false", "0" or "off".
type SubmitLeaveRequest struct {
	LeaveType string `form:"leave_type" binding:"required,max=32"`
	StartDate string `form:"start_date" binding:"required,leave_date"`
	EndDate   string `form:"end_date" binding:"required,leave_date"`
	Reason    string `form:"reason" binding:"max=450"`
}

// SubmitLeaveResponse represents a granted leave request.
type SubmitLeaveResponse struct {
	Record   LeaveRecordResponse `json:"record"`
	Label    string              `json:"label"`
	Warnings []string            `json:"warnings"`
}

// DeleteLeaveQuery holds the query parameters of a delete. A missing restore
// flag means the days are given back.
type DeleteLeaveQuery struct {
	Restore *bool `form:"restore"`
}

func (q DeleteLeaveQuery) restore() bool {
	return q.Restore == nil || *q.Restore
}

// YearQuery selects the year of the usage statistics.
type YearQuery struct {
	Year int `form:"year" binding:"omitempty,min=1970,max=9999"`
}

// DashboardResponse represents an account's balances, records and usage.
type DashboardResponse struct {
	Account AccountResponse       `json:"account"`
	Year    int                   `json:"year"`
	Used    BalancesResponse      `json:"used"`
	Records []LeaveRecordResponse `json:"records"`
}

// SubmitLeave handles a leave request
// @Summary     Submit a leave request
// @Description Validate a leave request against the caller's balance and record it. An optional receipt is uploaded and the leave is mirrored to the shared calendar after the record is saved; failures of either come back as warnings.
// @Tags        leave
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       leave_type formData string true  "Leave category or label"
// @Param       start_date formData string true  "First day (YYYY-MM-DD)"
// @Param       end_date   formData string true  "Last day (YYYY-MM-DD)"
// @Param       half_day   formData string false "Present for a half-day request"
// @Param       reason     formData string false "Reason"
// @Param       receipt    formData file   false "Supporting document"
// @Success     201 {object} SubmitLeaveResponse "Leave granted"
// @Failure     400 {object} ErrorResponse "Invalid input or rejected by policy"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     413 {object} ErrorResponse "Receipt too large"
// @Failure     415 {object} ErrorResponse "Unsupported receipt type"
// @Failure     503 {object} ErrorResponse "Could not be saved"
// @Router      /leave [post]
func (h *LeaveHandler) SubmitLeave(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)

	var req SubmitLeaveRequest
	if err := c.ShouldBind(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondWithError(c, apperrors.ErrReceiptTooLarge)
			return
		}
		respondWithError(c, invalidInput(err))
		return
	}

	receipt, err := h.readReceipt(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.leaveService.SubmitLeave(c.Request.Context(), identity, services.SubmitLeaveInput{
		LeaveType: req.LeaveType,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		HalfDay:   halfDayChecked(c),
		Reason:    req.Reason,
		Receipt:   receipt,
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(identity.AccountID, services.ActionSubmitLeave, services.ResourceLeaveRecord, result.Record.ID, c.ClientIP(),
		map[string]any{
			"leave_type": string(result.Record.LeaveType),
			"start_date": req.StartDate,
			"end_date":   req.EndDate,
			"days":       result.Record.Days.String(),
		})

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	c.JSON(http.StatusCreated, SubmitLeaveResponse{
		Record:   newLeaveRecordResponse(result.Record),
		Label:    result.Label,
		Warnings: warnings,
	})
}

func halfDayChecked(c *gin.Context) bool {
	value, ok := c.GetPostForm("half_day")
	if !ok {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "false", "0", "off":
		return false
	}
	return true
}

// readReceipt returns the uploaded receipt, or nil when none was sent.
func (h *LeaveHandler) readReceipt(c *gin.Context) (*services.Receipt, error) {
	header, err := c.FormFile("receipt")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, invalidInput(err)
	}
	if header.Size > h.maxUploadBytes {
		return nil, apperrors.ErrReceiptTooLarge
	}

	data, err := readAll(header, h.maxUploadBytes)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}

	contentType, err := storage.DetectContentType(data, header.Filename)
	if err != nil {
		return nil, err
	}
	return &services.Receipt{
		Filename:    storage.SanitizeFilename(header.Filename),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readAll(header *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, invalidInput(err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, invalidInput(err)
	}
	if int64(len(data)) > limit {
		return nil, apperrors.ErrReceiptTooLarge
	}
	return data, nil
}

// DeleteLeaveRecord handles deleting a leave record
// @Summary     Delete a leave record
// @Description Delete one of the caller's leave records (any record for an administrator). Its days are added back to the balance unless restore=false
// @Tags        leave
// @Produce     json
// @Security    BearerAuth
// @Param       id      path  string true  "Leave record ID"
// @Param       restore query bool   false "Add the days back to the balance" default(true)
// @Success     200 {object} map[string]interface{} "Deleted"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Leave record not found"
// @Router      /leave/{id} [delete]
func (h *LeaveHandler) DeleteLeaveRecord(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	var query DeleteLeaveQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	restore := query.restore()
	accountID, err := h.leaveService.DeleteLeaveRecord(identity, recordID, restore)
	if err != nil {
		respondWithError(c, err)
		return
	}

	h.auditService.Log(identity.AccountID, services.ActionDeleteLeave, services.ResourceLeaveRecord, recordID, c.ClientIP(),
		map[string]any{"account_id": accountID, "restore": restore})

	c.JSON(http.StatusOK, gin.H{
		"message":    "Leave record deleted",
		"account_id": accountID,
		"restored":   restore,
	})
}

// GetLeaveRecord handles fetching a single leave record
// @Summary     Get a leave record
// @Tags        leave
// @Produce     json
// @Security    BearerAuth
// @Param       id path string true "Leave record ID"
// @Success     200 {object} LeaveRecordResponse "Leave record"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Leave record not found"
// @Router      /leave/{id} [get]
func (h *LeaveHandler) GetLeaveRecord(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	recordID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}

	record, err := h.leaveService.GetLeaveRecord(identity, recordID)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"record": newLeaveRecordResponse(record)})
}

// ListMyRecords handles listing the caller's leave records
// @Summary     List own leave records
// @Description List the caller's leave records, newest first
// @Tags        leave
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int false "Page number"
// @Param       page_size query int false "Items per page (max 100)"
// @Success     200 {object} pagination.PageResponse[LeaveRecordResponse] "Leave records"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /leave [get]
func (h *LeaveHandler) ListMyRecords(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	result, err := h.leaveService.ListRecords(identity, identity.AccountID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, pagination.Map(*result, newLeaveRecordResponse))
}

// GetDashboard handles the caller's dashboard
// @Summary     Get own dashboard
// @Description Balances, all leave records newest first and per-category usage for a year
// @Tags        leave
// @Produce     json
// @Security    BearerAuth
// @Param       year query int false "Year of the usage statistics (default: current year)"
// @Success     200 {object} DashboardResponse "Dashboard"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /dashboard [get]
func (h *LeaveHandler) GetDashboard(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.dashboard(c, identity, identity.AccountID)
}

// GetAccountRecords handles an account's records and usage statistics
// @Summary     Get an account's records
// @Description Balances, leave records and per-category usage of an account. Only the owner or an administrator may read them.
// @Tags        leave
// @Produce     json
// @Security    BearerAuth
// @Param       id   path  string true  "Account ID"
// @Param       year query int    false "Year of the usage statistics (default: current year)"
// @Success     200 {object} DashboardResponse "Records"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Forbidden"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /accounts/{id}/records [get]
func (h *LeaveHandler) GetAccountRecords(c *gin.Context) {
	identity, err := getIdentity(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	accountID, err := parsePathID(c, "id")
	if err != nil {
		respondWithError(c, err)
		return
	}
	h.dashboard(c, identity, accountID)
}

func (h *LeaveHandler) dashboard(c *gin.Context, identity services.Identity, accountID string) {
	var query YearQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondWithError(c, invalidInput(err))
		return
	}

	dash, err := h.leaveService.GetDashboard(identity, accountID, query.Year)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, DashboardResponse{
		Account: newAccountResponse(dash.Account),
		Year:    dash.Year,
		Used:    newBalancesResponse(dash.Used),
		Records: newLeaveRecordResponses(dash.Records),
	})
}
