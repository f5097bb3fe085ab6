package service

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
	"gitlab.com/dirk.krummacker/contact-manager/internal/validate"
	pkgmodel "gitlab.com/dirk.krummacker/contact-manager/pkg/model"
)

// contactPatch holds the values of a PUT request. Values that are not specified stay unchanged.
type contactPatch struct {
	FullName    *string `json:"full_name"`
	PhoneNumber *string `json:"phone_number"`
	Email       *string `json:"email"`
	Address     *string `json:"address"`
	Company     *string `json:"company"`
	Notes       *string `json:"notes"`
}

func (p contactPatch) empty() bool {
	return p.FullName == nil && p.PhoneNumber == nil && p.Email == nil &&
		p.Address == nil && p.Company == nil && p.Notes == nil
}

// applyTo returns the fields with all specified values replaced.
func (p contactPatch) applyTo(f model.Fields) model.Fields {
	for _, v := range []struct {
		src *string
		dst *string
	}{
		{p.FullName, &f.FullName},
		{p.PhoneNumber, &f.PhoneNumber},
		{p.Email, &f.Email},
		{p.Address, &f.Address},
		{p.Company, &f.Company},
		{p.Notes, &f.Notes},
	} {
		if v.src != nil {
			*v.dst = *v.src
		}
	}
	return f
}

// findContacts responds with one page of contacts as JSON, ordered by full name.
//
// The URL parameter 'search' restricts the result to contacts whose full name or email contain
// the text, ignoring case, or whose phone number contains it. The URL parameter 'page' selects
// the page, starting with 1. The page size is fixed by the server configuration.
//
// REST API calls:
//
//	> curl "http://localhost:8080/api/contacts"
//	> curl "http://localhost:8080/api/contacts?page=3"
//	> curl "http://localhost:8080/api/contacts?search=smith"
func (s *Service) findContacts(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	result, err := s.listPage(c, search, parsePage(c))
	if err != nil {
		s.internalError(c, "cannot load contacts", err)
		return
	}
	c.IndentedJSON(http.StatusOK, result)
}

// createContact validates the contact specified in the request's JSON and stores it. It responds
// with the full contact data including the newly assigned id.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts --request "POST" --include --header "Content-Type: application/json" --data '{"full_name": "Erika Mustermann", "phone_number": "+49 0815 4711", "email": "erika@example.com"}'
func (s *Service) createContact(c *gin.Context) {
	var submitted model.Fields
	if err := c.ShouldBindJSON(&submitted); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}
	fields, errs := validate.Contact(submitted)
	if errs != nil {
		abortInvalid(c, errs)
		return
	}
	contact := model.NewContact(fields, s.opts.Now())
	if _, err := s.store.Create(c.Request.Context(), &contact); err != nil {
		s.internalError(c, "cannot create contact", err)
		return
	}
	s.metrics.IncrementContactsCreated()
	c.IndentedJSON(http.StatusCreated, contact)
}

// findContactByID locates the contact whose ID value matches the id parameter of the request URL,
// then returns that contact as a response.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56
func (s *Service) findContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return
	}
	contact, err := s.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		s.internalError(c, "cannot load contact", err)
		return
	}
	c.IndentedJSON(http.StatusOK, contact)
}

// updateContactByID updates the contact whose ID value matches the id parameter of the request
// URL with the values specified in the JSON (and only those), and finally responds with the new
// version of the contact. The resulting contact must pass the same validation as a new one.
//
// Example REST API calls:
//
//	> curl http://localhost:8080/api/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"phone_number": "0815 4711 0000"}'
//	> curl http://localhost:8080/api/contacts/56 --request "PUT" --include --header "Content-Type: application/json" --data '{"company": ""}'
func (s *Service) updateContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return
	}
	var patch contactPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "invalid JSON"})
		return
	}

	// It only makes sense to continue if we have at least one value to update.
	if patch.empty() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": "no values to be updated"})
		return
	}

	contact, err := s.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		s.internalError(c, "cannot load contact", err)
		return
	}
	fields, errs := validate.Contact(patch.applyTo(contact.Fields()))
	if errs != nil {
		abortInvalid(c, errs)
		return
	}
	contact.Apply(fields, s.opts.Now())
	err = s.store.Update(c.Request.Context(), &contact)
	if errors.Is(err, store.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		s.internalError(c, "cannot update contact", err)
		return
	}
	s.metrics.IncrementContactsUpdated()
	c.IndentedJSON(http.StatusOK, contact)
}

// deleteContactByID deletes the contact whose ID value matches the id parameter of the request URL
// from the database.
//
// Example REST API call:
//
//	> curl http://localhost:8080/api/contacts/56 --request "DELETE"
func (s *Service) deleteContactByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "invalid id parameter"})
		return
	}
	err := s.store.Delete(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "contact not found"})
		return
	}
	if err != nil {
		s.internalError(c, "cannot delete contact", err)
		return
	}
	s.metrics.IncrementContactsDeleted()
	c.IndentedJSON(http.StatusOK, gin.H{"message": "contact deleted"})
}

// abortInvalid answers a request whose contact data did not pass validation.
func abortInvalid(c *gin.Context, errs validate.Errors) {
	c.AbortWithStatusJSON(http.StatusUnprocessableEntity, pkgmodel.ErrorResponse{
		Message: "invalid contact",
		Errors:  errs.Messages(),
	})
}

// internalError logs err and answers with a message that does not reveal it.
func (s *Service) internalError(c *gin.Context, msg string, err error) {
	logging.FromContext(c.Request.Context()).Error(msg, "path", c.Request.URL.Path, "method", c.Request.Method, "error", err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": "internal server error"})
}
