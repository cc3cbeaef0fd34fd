// Package docs holds the Swagger document for the Inkwell API in the layout
// swag init emits. Edit it alongside the handler annotations in internal/http.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "Inkwell"
        },
        "license": {
            "name": "MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/": {
            "get": {
                "description": "The six newest posts and the signed-in user, if any.",
                "produces": ["application/json"],
                "tags": ["Feed"],
                "summary": "Landing view",
                "responses": {
                    "200": {
                        "description": "posts and user",
                        "schema": {"type": "object", "additionalProperties": true}
                    }
                }
            }
        },
        "/feed": {
            "get": {
                "description": "Three posts per page. Page 1 starts after the third newest post.",
                "produces": ["application/json"],
                "tags": ["Feed"],
                "summary": "Feed page",
                "parameters": [
                    {"type": "integer", "default": 1, "description": "Page number", "name": "page", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {"type": "array", "items": {"$ref": "#/definitions/model.Post"}}
                    }
                }
            }
        },
        "/signup": {
            "post": {
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Create an account",
                "parameters": [
                    {"type": "string", "description": "Login id", "name": "userid", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "pw", "in": "formData", "required": true},
                    {"type": "string", "description": "Password confirmation", "name": "pw2", "in": "formData", "required": true},
                    {"type": "string", "description": "Display name", "name": "username", "in": "formData", "required": true}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.User"}},
                    "302": {"description": "Found"},
                    "400": {"description": "Missing field or password mismatch", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "userid taken", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/login": {
            "post": {
                "description": "Sets the session cookie. Unknown users get 404 and wrong passwords 401, both with an empty body.",
                "consumes": ["application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Sign in",
                "parameters": [
                    {"type": "string", "description": "Login id", "name": "userid", "in": "formData", "required": true},
                    {"type": "string", "description": "Password", "name": "pw", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "user and token", "schema": {"type": "object", "additionalProperties": true}},
                    "302": {"description": "Found"},
                    "400": {"description": "Missing field", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "401": {"description": "Unauthorized"},
                    "404": {"description": "Not Found"},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/logout": {
            "get": {
                "tags": ["Accounts"],
                "summary": "Sign out",
                "responses": {"302": {"description": "Found"}}
            }
        },
        "/mypage": {
            "get": {
                "security": [{"CookieAuth": []}],
                "produces": ["application/json"],
                "tags": ["Accounts"],
                "summary": "Current user",
                "responses": {
                    "200": {"description": "user", "schema": {"type": "object", "additionalProperties": true}},
                    "401": {"description": "Sign in required", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/posts": {
            "post": {
                "security": [{"CookieAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Publish a post",
                "parameters": [
                    {"type": "string", "description": "Title", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "description": "Body", "name": "content", "in": "formData", "required": true},
                    {"type": "file", "description": "Image", "name": "postImg", "in": "formData"}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/model.Post"}},
                    "302": {"description": "Found"},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "401": {"description": "Sign in required", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/posts/{id}": {
            "get": {
                "description": "Post, like ledger, whether the caller liked it, and comments newest first.",
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Read a post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "post detail", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/posts/{id}/comments": {
            "post": {
                "security": [{"CookieAuth": []}],
                "consumes": ["application/json", "application/x-www-form-urlencoded"],
                "produces": ["application/json"],
                "tags": ["Comments"],
                "summary": "Comment on a post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"description": "Comment", "name": "comment", "in": "body", "required": true,
                     "schema": {"type": "object", "properties": {"comment": {"type": "string"}}}}
                ],
                "responses": {
                    "200": {"description": "success", "schema": {"type": "object", "additionalProperties": {"type": "boolean"}}},
                    "400": {"description": "Empty comment", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "401": {"description": "Sign in required", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/posts/{id}/like": {
            "post": {
                "security": [{"CookieAuth": []}],
                "description": "Adds the caller to the post's likers, or removes them if already present.",
                "produces": ["application/json"],
                "tags": ["Likes"],
                "summary": "Like or unlike a post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.LikeResult"}},
                    "302": {"description": "Found"},
                    "401": {"description": "Sign in required", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "409": {"description": "Concurrent toggle, retry", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/posts/{id}/edit": {
            "post": {
                "security": [{"CookieAuth": []}],
                "description": "Replaces title and content and stamps the edit time. Without a new image the current one is kept.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Edit your post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Title", "name": "title", "in": "formData", "required": true},
                    {"type": "string", "description": "Body", "name": "content", "in": "formData", "required": true},
                    {"type": "file", "description": "Replacement image", "name": "postImg", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/model.Post"}},
                    "302": {"description": "Found"},
                    "401": {"description": "Sign in required", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "403": {"description": "Not your post", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/posts/{id}/delete": {
            "post": {
                "security": [{"CookieAuth": []}],
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Delete your post",
                "parameters": [
                    {"type": "integer", "description": "Post ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "401": {"description": "Sign in required", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "403": {"description": "Not your post", "schema": {"$ref": "#/definitions/errorResponse"}},
                    "404": {"description": "Post not found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        },
        "/users/{userid}/posts": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Posts"],
                "summary": "Posts by author",
                "parameters": [
                    {"type": "string", "description": "Author login id", "name": "userid", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "posts, postUser and user", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "User not found", "schema": {"$ref": "#/definitions/errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "model.User": {
            "type": "object",
            "properties": {
                "userid": {"type": "string"},
                "username": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "model.Post": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "content": {"type": "string"},
                "createdAt": {"type": "string"},
                "authorId": {"type": "string"},
                "authorName": {"type": "string"},
                "imagePath": {"type": "string"}
            }
        },
        "model.Comment": {
            "type": "object",
            "properties": {
                "postId": {"type": "integer"},
                "body": {"type": "string"},
                "createdAt": {"type": "string"},
                "authorId": {"type": "string"},
                "authorName": {"type": "string"}
            }
        },
        "model.Like": {
            "type": "object",
            "properties": {
                "postId": {"type": "integer"},
                "likeTotal": {"type": "integer"},
                "likeMembers": {"type": "array", "items": {"type": "string"}}
            }
        },
        "model.LikeResult": {
            "type": "object",
            "properties": {
                "postId": {"type": "integer"},
                "likeTotal": {"type": "integer"},
                "liked": {"type": "boolean"}
            }
        }
    },
    "securityDefinitions": {
        "CookieAuth": {
            "description": "Session token set by POST /login",
            "type": "apiKey",
            "name": "token",
            "in": "cookie"
        }
    },
    "tags": [
        {"description": "Landing view and paged feed.", "name": "Feed"},
        {"description": "Sign up, sign in and the current user.", "name": "Accounts"},
        {"description": "Publish, read, edit and delete posts.", "name": "Posts"},
        {"description": "Append-only comments on posts.", "name": "Comments"},
        {"description": "One like per user per post, toggled.", "name": "Likes"}
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Inkwell API",
	Description:      "A small publishing platform: accounts, posts with images, comments and likes.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
