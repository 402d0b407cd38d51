package handler

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jmcampos/despensa/internal/backup"
	"github.com/jmcampos/despensa/internal/model"
	"github.com/jmcampos/despensa/internal/store"
)

const backupHistoryLimit = 50

type BackupHandler struct {
	manager       *backup.Manager
	backupStore   *store.BackupStore
	settingsStore *store.SettingsStore
	logger        *slog.Logger
}

func NewBackupHandler(m *backup.Manager, bs *store.BackupStore, ss *store.SettingsStore, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{
		manager:       m,
		backupStore:   bs,
		settingsStore: ss,
		logger:        logger,
	}
}

func (h *BackupHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingsStore.GetBackupSettings()
	if err != nil {
		h.logger.Error("get backup settings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}

	// The salt never leaves the server; report only whether it exists.
	configured := settings["backup_passphrase_salt"] != ""
	delete(settings, "backup_passphrase_salt")

	writeJSON(w, http.StatusOK, map[string]any{
		"settings":              settings,
		"passphrase_configured": configured,
		"status":                h.manager.Status(),
	})
}

func (h *BackupHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := validateBackupSettings(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	for key, value := range req {
		if err := h.settingsStore.Set(key, value); err != nil {
			h.logger.Error("save backup setting", "key", key, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to save settings")
			return
		}
	}

	settings, err := h.settingsStore.GetBackupSettings()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get settings")
		return
	}
	delete(settings, "backup_passphrase_salt")
	writeJSON(w, http.StatusOK, settings)
}

func validateBackupSettings(settings map[string]string) error {
	for key, value := range settings {
		switch key {
		case "backup_enabled":
			if value != "true" && value != "false" {
				return fmt.Errorf("backup_enabled must be \"true\" or \"false\"")
			}
		case "backup_schedule_hour":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 || n > 23 {
				return fmt.Errorf("backup_schedule_hour must be 0-23")
			}
		case "backup_retention_days":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > 365 {
				return fmt.Errorf("backup_retention_days must be 1-365")
			}
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
	}
	return nil
}

// SetPassphrase stores a fresh salt for the given passphrase and caches the
// pair in memory so scheduled backups can run unattended.
func (h *BackupHandler) SetPassphrase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if len(req.Passphrase) < 12 {
		writeError(w, http.StatusBadRequest, "passphrase must be at least 12 characters")
		return
	}

	salt, err := backup.GenerateSalt()
	if err != nil {
		h.logger.Error("generate salt", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate salt")
		return
	}

	if err := h.settingsStore.Set("backup_passphrase_salt", hex.EncodeToString(salt)); err != nil {
		h.logger.Error("save salt", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save passphrase")
		return
	}

	h.manager.CacheKey(req.Passphrase, salt)
	writeJSON(w, http.StatusOK, map[string]string{"status": "configured"})
}

func (h *BackupHandler) RunNow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	id, err := h.manager.RunNow(r.Context(), req.Passphrase)
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	record, err := h.backupStore.GetByID(id)
	if err != nil || record == nil {
		writeJSON(w, http.StatusOK, map[string]int64{"id": id})
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *BackupHandler) History(w http.ResponseWriter, r *http.Request) {
	backups, err := h.backupStore.List(backupHistoryLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if backups == nil {
		backups = []model.Backup{}
	}
	writeJSON(w, http.StatusOK, backups)
}

// Restore replaces the live database with the chosen snapshot. On success
// the process exits and must be restarted by its supervisor.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req struct {
		Passphrase string `json:"passphrase"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Passphrase == "" {
		writeError(w, http.StatusBadRequest, "passphrase is required")
		return
	}

	if err := h.manager.Restore(r.Context(), id, req.Passphrase); err != nil {
		h.logger.Error("restore backup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
}

func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	body, size, err := h.manager.Download(r.Context(), id)
	if err != nil {
		h.logger.Error("download backup", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	defer body.Close()

	record, _ := h.backupStore.GetByID(id)
	filename := "backup.db.enc"
	if record != nil {
		filename = record.Filename
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	io.Copy(w, body)
}
