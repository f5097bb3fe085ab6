package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"gitlab.com/dirk.krummacker/contact-manager/internal/logging"
	"gitlab.com/dirk.krummacker/contact-manager/internal/model"
	"gitlab.com/dirk.krummacker/contact-manager/internal/pagination"
	"gitlab.com/dirk.krummacker/contact-manager/internal/store"
	"gitlab.com/dirk.krummacker/contact-manager/internal/validate"
)

const msgContactNotFound = "Contact not found."

// index renders the home page with the number of stored contacts.
func (s *Service) index(c *gin.Context) {
	total, err := s.store.Count(c.Request.Context())
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("cannot count contacts", "error", err)
		s.render(c, http.StatusOK, "index.html", gin.H{"Total": 0},
			failure("An error occurred while loading the page."))
		return
	}
	s.render(c, http.StatusOK, "index.html", gin.H{"Total": total})
}

// notFound renders the home page for unknown paths, or a JSON message below /api.
func (s *Service) notFound(c *gin.Context) {
	if isAPI(c) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"message": "not found"})
		return
	}
	total, err := s.store.Count(c.Request.Context())
	if err != nil {
		total = 0
	}
	s.render(c, http.StatusNotFound, "index.html", gin.H{"Total": total, "Title": "Page not found"},
		failure("The page you requested does not exist."))
}

// contactsList renders one page of contacts. With the URL parameter 'search', only contacts
// whose name, phone number or email contain the search text are listed.
//
//	> curl "http://localhost:8080/contacts?search=smith&page=2"
func (s *Service) contactsList(c *gin.Context) {
	search := strings.TrimSpace(c.Query("search"))
	result, err := s.listPage(c, search, parsePage(c))
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("cannot load contacts", "search", search, "error", err)
		s.render(c, http.StatusOK, "contacts_list.html", gin.H{"Title": "Contacts", "Search": search},
			failure("An error occurred while loading contacts."))
		return
	}
	s.render(c, http.StatusOK, "contacts_list.html", gin.H{
		"Title":  "Contacts",
		"Search": search,
		"Page":   result,
	})
}

// listPage returns a page of all contacts, or of the contacts matching the search text.
func (s *Service) listPage(c *gin.Context, search string, page int) (pagination.Page[model.Contact], error) {
	ctx := c.Request.Context()
	if search != "" {
		matches, err := s.store.Search(ctx, search)
		if err != nil {
			return pagination.Page[model.Contact]{}, err
		}
		return pagination.FromSlice(matches, page, s.opts.ContactsPerPage), nil
	}
	contacts, total, err := s.store.List(ctx, page, s.opts.ContactsPerPage)
	if err != nil {
		return pagination.Page[model.Contact]{}, err
	}
	return pagination.New(contacts, page, s.opts.ContactsPerPage, total), nil
}

// addContactForm renders the empty form for a new contact.
func (s *Service) addContactForm(c *gin.Context) {
	s.renderForm(c, http.StatusOK, nil, model.Fields{}, nil)
}

// addContact validates the submitted form and stores the new contact. Invalid input is shown
// again together with one notice per rejected field.
func (s *Service) addContact(c *gin.Context) {
	var submitted model.Fields
	if err := c.ShouldBindWith(&submitted, binding.Form); err != nil {
		s.renderForm(c, http.StatusBadRequest, nil, submitted, nil, failure("The form could not be read."))
		return
	}
	fields, errs := validate.Contact(submitted)
	if errs != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, nil, submitted, errs)
		return
	}

	contact := model.NewContact(fields, s.opts.Now())
	if _, err := s.store.Create(c.Request.Context(), &contact); err != nil {
		logging.FromContext(c.Request.Context()).Error("cannot create contact", "error", err)
		s.renderForm(c, http.StatusInternalServerError, nil, submitted, nil,
			failure("An error occurred while adding the contact. Please try again."))
		return
	}
	s.metrics.IncrementContactsCreated()
	logging.FromContext(c.Request.Context()).Info("contact created", "id", contact.Id)
	s.redirect(c, "/contacts", success(fmt.Sprintf("Contact \"%s\" added successfully!", contact.FullName)))
}

// viewContact renders all details of a contact.
func (s *Service) viewContact(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}
	s.render(c, http.StatusOK, "contact_detail.html", gin.H{"Title": contact.FullName, "Contact": contact})
}

// editContactForm renders the form with the stored values of a contact.
func (s *Service) editContactForm(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}
	s.renderForm(c, http.StatusOK, &contact, contact.Fields(), nil)
}

// editContact validates the submitted form and overwrites all values of the contact.
func (s *Service) editContact(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}
	var submitted model.Fields
	if err := c.ShouldBindWith(&submitted, binding.Form); err != nil {
		s.renderForm(c, http.StatusBadRequest, &contact, submitted, nil, failure("The form could not be read."))
		return
	}
	fields, errs := validate.Contact(submitted)
	if errs != nil {
		s.renderForm(c, http.StatusUnprocessableEntity, &contact, submitted, errs)
		return
	}

	contact.Apply(fields, s.opts.Now())
	if err := s.store.Update(c.Request.Context(), &contact); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.redirect(c, "/contacts", failure(msgContactNotFound))
			return
		}
		logging.FromContext(c.Request.Context()).Error("cannot update contact", "id", contact.Id, "error", err)
		s.redirect(c, "/contacts", failure("An error occurred. Please try again."))
		return
	}
	s.metrics.IncrementContactsUpdated()
	logging.FromContext(c.Request.Context()).Info("contact updated", "id", contact.Id)
	s.redirect(c, fmt.Sprintf("/contacts/%d", contact.Id),
		success(fmt.Sprintf("Contact \"%s\" updated successfully!", contact.FullName)))
}

// deleteContact removes a contact and returns to the list.
func (s *Service) deleteContact(c *gin.Context) {
	contact, ok := s.loadContact(c)
	if !ok {
		return
	}
	if err := s.store.Delete(c.Request.Context(), contact.Id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.redirect(c, "/contacts", failure(msgContactNotFound))
			return
		}
		logging.FromContext(c.Request.Context()).Error("cannot delete contact", "id", contact.Id, "error", err)
		s.redirect(c, "/contacts", failure("An error occurred while deleting the contact."))
		return
	}
	s.metrics.IncrementContactsDeleted()
	logging.FromContext(c.Request.Context()).Info("contact deleted", "id", contact.Id)
	s.redirect(c, "/contacts", success(fmt.Sprintf("Contact \"%s\" deleted successfully!", contact.FullName)))
}

// loadContact returns the contact of the id path parameter. If there is none, the client is
// redirected to the list and false is returned.
func (s *Service) loadContact(c *gin.Context) (model.Contact, bool) {
	id, ok := parseID(c)
	if !ok {
		s.redirect(c, "/contacts", failure(msgContactNotFound))
		return model.Contact{}, false
	}
	contact, err := s.store.GetByID(c.Request.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		s.redirect(c, "/contacts", failure(msgContactNotFound))
		return model.Contact{}, false
	}
	if err != nil {
		logging.FromContext(c.Request.Context()).Error("cannot load contact", "id", id, "error", err)
		s.redirect(c, "/contacts", failure("An error occurred while loading the contact."))
		return model.Contact{}, false
	}
	return contact, true
}

// renderForm renders the contact form. contact is nil for a new contact. Every validation error
// becomes a notice and marks its input field.
func (s *Service) renderForm(c *gin.Context, status int, contact *model.Contact, form model.Fields,
	errs validate.Errors, notices ...notice) {
	for _, fe := range errs.List() {
		notices = append(notices, failure(fe.Message))
	}
	title := "Add Contact"
	if contact != nil {
		title = "Edit " + contact.FullName
	}
	s.render(c, status, "contact_form.html", gin.H{
		"Title":   title,
		"Contact": contact,
		"Form":    form,
		"Errors":  errs.Messages(),
	}, notices...)
}
