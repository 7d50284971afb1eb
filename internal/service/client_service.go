package service

import (
	"context"
	"fmt"
	"time"

	"shopbill/internal/model"
	"shopbill/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type CreateClientRequest struct {
	Name    string `json:"name" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
	Email   string `json:"email"`
	Address string `json:"address"`
	GSTIN   string `json:"gstin"`
}

type UpdateClientRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email"`
	Address *string `json:"address"`
	GSTIN   *string `json:"gstin"`
}

type ClientResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	Address   string `json:"address,omitempty"`
	GSTIN     string `json:"gstin,omitempty"`
	CreatedAt string `json:"created_at"`
}

// --- Interface ---

type ClientService interface {
	CreateClient(ctx context.Context, req CreateClientRequest, userID string) (ClientResponse, error)
	UpdateClient(ctx context.Context, id string, req UpdateClientRequest, userID string) (ClientResponse, error)
	DeleteClient(ctx context.Context, id string, userID string) error
	GetClient(ctx context.Context, id string) (ClientResponse, error)
	ListClients(ctx context.Context, search string, page, limit int) ([]ClientResponse, int64, error)
}

type clientService struct {
	clientRepo repository.ClientRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
}

func NewClientService(
	clientRepo repository.ClientRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) ClientService {
	return &clientService{
		clientRepo: clientRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
	}
}

// --- Implementation ---

func (s *clientService) CreateClient(ctx context.Context, req CreateClientRequest, userID string) (ClientResponse, error) {
	client := model.Client{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   req.Email,
		Address: req.Address,
		GSTIN:   req.GSTIN,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.clientRepo.Create(txCtx, &client); createErr != nil {
			return fmt.Errorf("failed to create client: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionCreateClient, client.ID.String(), client.Name)
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return toClientResponse(client), nil
}

func (s *clientService) UpdateClient(ctx context.Context, id string, req UpdateClientRequest, userID string) (ClientResponse, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client id: %w", err)
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("client not found: %w", err)
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.Email != nil {
		client.Email = *req.Email
	}
	if req.Address != nil {
		client.Address = *req.Address
	}
	if req.GSTIN != nil {
		client.GSTIN = *req.GSTIN
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if updateErr := s.clientRepo.Update(txCtx, client); updateErr != nil {
			return fmt.Errorf("failed to update client: %w", updateErr)
		}
		return s.audit(txCtx, userID, model.ActionUpdateClient, client.ID.String(), client.Name)
	})
	if err != nil {
		return ClientResponse{}, err
	}

	return toClientResponse(*client), nil
}

func (s *clientService) DeleteClient(ctx context.Context, id string, userID string) error {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid client id: %w", err)
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		return fmt.Errorf("client not found: %w", err)
	}

	// Soft delete: existing bills keep their hard-copied customer fields
	// and the client_id stays resolvable for reporting
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if delErr := s.clientRepo.Delete(txCtx, clientID); delErr != nil {
			return fmt.Errorf("failed to delete client: %w", delErr)
		}
		return s.audit(txCtx, userID, model.ActionDeleteClient, client.ID.String(), client.Name)
	})
}

func (s *clientService) GetClient(ctx context.Context, id string) (ClientResponse, error) {
	clientID, err := uuid.Parse(id)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("invalid client id: %w", err)
	}

	client, err := s.clientRepo.FindByID(ctx, clientID)
	if err != nil {
		return ClientResponse{}, fmt.Errorf("client not found: %w", err)
	}
	return toClientResponse(*client), nil
}

func (s *clientService) ListClients(ctx context.Context, search string, page, limit int) ([]ClientResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	clients, total, err := s.clientRepo.List(ctx, search, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch clients: %w", err)
	}

	result := make([]ClientResponse, 0, len(clients))
	for _, c := range clients {
		result = append(result, toClientResponse(c))
	}
	return result, total, nil
}

// --- Helpers ---

func (s *clientService) audit(ctx context.Context, userID, action, entityID, entityName string) error {
	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
	}
	if parsed, err := uuid.Parse(userID); err == nil {
		entry.UserID = &parsed
	}
	return s.auditRepo.Log(ctx, &entry)
}

// --- Mapping ---

func toClientResponse(c model.Client) ClientResponse {
	return ClientResponse{
		ID:        c.ID.String(),
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		GSTIN:     c.GSTIN,
		CreatedAt: c.CreatedAt.Format(time.RFC3339),
	}
}
