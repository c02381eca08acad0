package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"customer-registry/internal/api/handler/dto"
	"customer-registry/internal/pkg/apperrors"
)

func (h *CustomerHandler) addressPath(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	customerID, err := getIDFromURL(r, "customerID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get customer ID from URL", slog.Any("error", err))
		respondError(w, err)
		return "", "", false
	}
	addressID, err := getIDFromURL(r, "addressID")
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to get address ID from URL", slog.Any("error", err))
		respondError(w, err)
		return "", "", false
	}
	return customerID, addressID, true
}

// ListAddresses handles GET /customers/{customerID}/addresses
//
// @Summary List a customer's addresses
// @Tags Addresses
// @Produce json
// @Param customerID path string true "Customer ID"
// @Success 200 {array} dto.AddressResponse
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID}/addresses [get]
// @Security BearerAuth
func (h *CustomerHandler) ListAddresses(w http.ResponseWriter, r *http.Request) {
	customerID, err := getIDFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	addresses, err := h.service.ListAddresses(r.Context(), customerID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to list addresses", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewAddressListResponse(addresses))
}

// AddAddress handles POST /customers/{customerID}/addresses
//
// @Summary Add an address
// @Description Adds a non-primary address to an existing customer.
// @Tags Addresses
// @Accept json
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param request body dto.AddressRequest true "Address text"
// @Success 201 {object} dto.AddressResponse
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "Customer not found"
// @Router /customers/{customerID}/addresses [post]
// @Security BearerAuth
func (h *CustomerHandler) AddAddress(w http.ResponseWriter, r *http.Request) {
	customerID, err := getIDFromURL(r, "customerID")
	if err != nil {
		respondError(w, err)
		return
	}

	var req dto.AddressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	addr, err := h.service.AddAddress(r.Context(), customerID, req.Address)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to add address", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Address added successfully", slog.String("customerID", customerID), slog.String("addressID", addr.AddressID))
	respondJSON(w, http.StatusCreated, dto.NewAddressResponse(addr))
}

// GetAddress handles GET /customers/{customerID}/addresses/{addressID}
//
// @Summary Retrieve an address
// @Tags Addresses
// @Produce json
// @Param customerID path string true "Customer ID"
// @Param addressID path string true "Address ID"
// @Success 200 {object} dto.AddressResponse
// @Failure 404 {object} dto.ErrorResponse "Address not found"
// @Router /customers/{customerID}/addresses/{addressID} [get]
// @Security BearerAuth
func (h *CustomerHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := h.addressPath(w, r)
	if !ok {
		return
	}

	addr, err := h.service.GetAddress(r.Context(), customerID, addressID)
	if err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to get address", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.NewAddressResponse(addr))
}

// UpdateAddress handles PUT /customers/{customerID}/addresses/{addressID}
//
// @Summary Update an address
// @Description Changes the address text. The primary flag is left untouched.
// @Tags Addresses
// @Accept json
// @Param customerID path string true "Customer ID"
// @Param addressID path string true "Address ID"
// @Param request body dto.AddressRequest true "Address text"
// @Success 204 "Address updated"
// @Failure 400 {object} dto.ErrorResponse "Validation error"
// @Failure 404 {object} dto.ErrorResponse "Address not found"
// @Router /customers/{customerID}/addresses/{addressID} [put]
// @Security BearerAuth
func (h *CustomerHandler) UpdateAddress(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := h.addressPath(w, r)
	if !ok {
		return
	}

	var req dto.AddressRequest
	if err := decodeJSON(r, &req); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body", slog.Any("error", err))
		respondError(w, fmt.Errorf("%w: %v", apperrors.ErrInvalidArgument, err))
		return
	}

	if err := h.service.UpdateAddress(r.Context(), customerID, addressID, req.Address); err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to update address", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}

// SetPrimaryAddress handles PUT /customers/{customerID}/addresses/{addressID}/primary
//
// @Summary Make an address primary
// @Description Clears the previous primary and marks this address primary in one transaction.
// @Tags Addresses
// @Param customerID path string true "Customer ID"
// @Param addressID path string true "Address ID"
// @Success 204 "Primary address changed"
// @Failure 404 {object} dto.ErrorResponse "Customer or address not found"
// @Router /customers/{customerID}/addresses/{addressID}/primary [put]
// @Security BearerAuth
func (h *CustomerHandler) SetPrimaryAddress(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := h.addressPath(w, r)
	if !ok {
		return
	}

	if err := h.service.SetPrimaryAddress(r.Context(), customerID, addressID); err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to set primary address", slog.Any("error", err))
		respondError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "Primary address changed", slog.String("customerID", customerID), slog.String("addressID", addressID))
	respondJSON(w, http.StatusNoContent, nil)
}

// DeleteAddress handles DELETE /customers/{customerID}/addresses/{addressID}
//
// @Summary Delete an address
// @Description The primary address cannot be deleted; make another address primary first.
// @Tags Addresses
// @Param customerID path string true "Customer ID"
// @Param addressID path string true "Address ID"
// @Success 204 "Address deleted"
// @Failure 404 {object} dto.ErrorResponse "Address not found"
// @Failure 409 {object} dto.ErrorResponse "Address is primary"
// @Router /customers/{customerID}/addresses/{addressID} [delete]
// @Security BearerAuth
func (h *CustomerHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	customerID, addressID, ok := h.addressPath(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAddress(r.Context(), customerID, addressID); err != nil {
		h.logger.Log(r.Context(), logLevelFor(err), "Service failed to delete address", slog.Any("error", err))
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusNoContent, nil)
}
