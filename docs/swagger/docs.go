// Package swagger holds the API description served under /swagger.
package swagger

import (
	"github.com/swaggo/swag"
)

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {
                "tags": ["system"],
                "summary": "Health check",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/login": {
            "post": {
                "tags": ["auth"],
                "summary": "Login",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/login/superadmin": {
            "post": {
                "tags": ["auth"],
                "summary": "Super admin login",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/login/user": {
            "post": {
                "tags": ["auth"],
                "summary": "User login",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/refresh": {
            "post": {
                "tags": ["auth"],
                "summary": "Refresh tokens",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/logout": {
            "post": {
                "tags": ["auth"],
                "summary": "Logout",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/profile": {
            "get": {
                "tags": ["auth"],
                "summary": "Get profile",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/password/reset/request": {
            "post": {
                "tags": ["auth"],
                "summary": "Request password reset",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/password/reset/verify": {
            "post": {
                "tags": ["auth"],
                "summary": "Verify reset code",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/auth/password/reset/confirm": {
            "post": {
                "tags": ["auth"],
                "summary": "Confirm password reset",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/pages": {
            "get": {
                "tags": ["pages"],
                "summary": "List pages",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/pages/{page}": {
            "get": {
                "tags": ["pages"],
                "summary": "Page detail",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/pages/{page}/permissions": {
            "get": {
                "tags": ["pages"],
                "summary": "Page permissions",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/pages/{page}/comments": {
            "get": {
                "tags": ["comments"],
                "summary": "List comments",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["comments"],
                "summary": "Post comment",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/comments/{id}": {
            "put": {
                "tags": ["comments"],
                "summary": "Edit comment",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["comments"],
                "summary": "Delete comment",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/comments/{id}/history": {
            "get": {
                "tags": ["comments"],
                "summary": "Comment history",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/user-accessible-pages": {
            "get": {
                "tags": ["pages"],
                "summary": "Accessible pages",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/users": {
            "get": {
                "tags": ["admin"],
                "summary": "List users",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "tags": ["admin"],
                "summary": "Create user",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/users/{id}": {
            "put": {
                "tags": ["admin"],
                "summary": "Update user",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            },
            "delete": {
                "tags": ["admin"],
                "summary": "Delete user",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/users/{id}/permissions": {
            "get": {
                "tags": ["admin"],
                "summary": "User permissions",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/permissions/update": {
            "post": {
                "tags": ["admin"],
                "summary": "Update permission",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/api/v1/archives": {
            "get": {
                "tags": ["admin"],
                "summary": "List user archives",
                "produces": ["application/json"],
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "pageguard API",
	Description:      "Page level access control with audited comments.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
