package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campusmess/feedback-server/config"
	"github.com/campusmess/feedback-server/models"
	"github.com/campusmess/feedback-server/storage"
	"github.com/campusmess/feedback-server/utils"
)

// MaxMenuImageSize caps menu image uploads at 5MB.
const MaxMenuImageSize = 5 << 20

// maxMenuFormOverhead leaves room for the text fields and multipart framing
// on top of the image cap.
const maxMenuFormOverhead = 1 << 20

var errImageTooLarge = errors.New("menu image exceeds the size limit")

// MenuHandler dispatches /api/menu: public reads, role-gated upsert writes.
func MenuHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		getMenuHandler(w, r)
	case http.MethodPost:
		postMenuHandler(w, r)
	default:
		utils.RespondError(w, nil, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func getMenuHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Menu GET API]")

	vendor := r.URL.Query().Get("vendorId")
	if vendor == "" {
		utils.RespondError(w, &logMessageBuilder, "Vendor ID is required", http.StatusBadRequest)
		return
	}

	day := utils.Now()
	if dateStr := r.URL.Query().Get("date"); dateStr != "" {
		parsed, err := time.ParseInLocation("2006-01-02", dateStr, day.Location())
		if err != nil {
			utils.RespondError(w, &logMessageBuilder, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		day = parsed
	}
	dayStart, dayEnd := utils.DayWindow(day)

	menus, err := storage.Menus.ForVendorDate(r.Context(), vendor, dayStart, dayEnd)
	if err != nil {
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Menu lookup failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}

	for i := range menus {
		menus[i].ImageURL = utils.ResolveImageURL(r.Context(), menus[i].ImageURL)
	}

	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{"menus": menus})
}

func postMenuHandler(w http.ResponseWriter, r *http.Request) {
	var logMessageBuilder strings.Builder
	defer func() {
		fmt.Println(logMessageBuilder.String())
	}()
	utils.AddToLogMessage(&logMessageBuilder, "[Menu POST API]")

	r.Body = http.MaxBytesReader(w, r.Body, MaxMenuImageSize+maxMenuFormOverhead)
	if err := r.ParseMultipartForm(MaxMenuImageSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.RespondError(w, &logMessageBuilder, "Image must be at most 5MB", http.StatusBadRequest)
			return
		}
		utils.RespondError(w, &logMessageBuilder, "Error parsing form data", http.StatusBadRequest)
		return
	}

	caller, err := requireRole(r.Context(), r, models.RoleAdmin, models.RoleVendor)
	if respondAccessError(w, &logMessageBuilder, err) {
		return
	}

	vendor := r.FormValue("vendorId")
	if !config.IsValidVendor(vendor) {
		utils.RespondError(w, &logMessageBuilder, "Invalid vendor", http.StatusBadRequest)
		return
	}

	// Vendors may only touch their own menu; admins may touch any.
	if caller.Role == models.RoleVendor && caller.AssignedVendor != vendor {
		utils.RespondError(w, &logMessageBuilder, "You can only update your own Menu", http.StatusForbidden)
		return
	}

	mealType, err := models.ParseMealType(r.FormValue("mealType"))
	if err != nil {
		utils.RespondError(w, &logMessageBuilder, err.Error(), http.StatusBadRequest)
		return
	}

	items := r.FormValue("items")
	if items == "" {
		utils.RespondError(w, &logMessageBuilder, "Items are required", http.StatusBadRequest)
		return
	}

	date := utils.Now()
	if dateStr := r.FormValue("date"); dateStr != "" {
		parsed, perr := time.ParseInLocation("2006-01-02", dateStr, date.Location())
		if perr != nil {
			utils.RespondError(w, &logMessageBuilder, "Invalid date, expected YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}
	menuDate := utils.Midnight(date)

	imageURL := ""
	if file, header, ferr := r.FormFile("image"); ferr == nil {
		defer file.Close()
		imageURL, err = saveMenuImage(r, file, header)
		if err != nil {
			if errors.Is(err, errImageTooLarge) {
				utils.RespondError(w, &logMessageBuilder, "Image must be at most 5MB", http.StatusBadRequest)
				return
			}
			utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Image upload failed: %v", err))
			utils.RespondError(w, &logMessageBuilder, "Failed to store menu image", http.StatusInternalServerError)
			return
		}
	}

	menu, err := storage.Menus.Upsert(r.Context(), vendor, menuDate, mealType, items, imageURL)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			utils.RespondError(w, &logMessageBuilder, "Menu was just updated by someone else, please retry", http.StatusConflict)
			return
		}
		utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Upsert failed: %v", err))
		utils.RespondError(w, &logMessageBuilder, "Server Error", http.StatusInternalServerError)
		return
	}
	menu.ImageURL = utils.ResolveImageURL(r.Context(), menu.ImageURL)

	utils.AddToLogMessage(&logMessageBuilder, fmt.Sprintf("Menu saved for %s / %s / %s", vendor, menuDate.Format("2006-01-02"), mealType))
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Menu saved successfully!",
		"menu":    menu,
	})
}

// saveMenuImage stores the uploaded image in S3 when configured, otherwise in
// the local upload dir served under /uploads/. Returns the stored reference.
func saveMenuImage(r *http.Request, file multipart.File, header *multipart.FileHeader) (string, error) {
	if header.Size > MaxMenuImageSize {
		return "", errImageTooLarge
	}

	ext := filepath.Ext(header.Filename)
	name := fmt.Sprintf("menu-%s%s", uuid.New().String(), ext)

	if utils.S3Enabled() {
		return utils.UploadFileToS3(r.Context(), file, "menus/"+name, header.Header.Get("Content-Type"))
	}

	if err := os.MkdirAll(config.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(config.UploadDir, name))
	if err != nil {
		return "", fmt.Errorf("failed to create image file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, file); err != nil {
		return "", fmt.Errorf("failed to write image file: %w", err)
	}
	return "/uploads/" + name, nil
}
